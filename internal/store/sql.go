// SPDX-License-Identifier: MIT
package store

import _ "embed"

//go:embed schema.sql
var initSchemaSQL string

const (
	insertSessionSQL = `
INSERT INTO sessions (started_at, source, sample_rate, fft_size, config)
VALUES (?, ?, ?, ?, ?)`

	selectSessionsSQL = `
SELECT s.id,
       s.started_at,
       s.source,
       s.sample_rate,
       s.fft_size,
       s.config,
       (SELECT COUNT(*) FROM frames f WHERE f.session_id = s.id)
FROM sessions s
ORDER BY s.id`

	insertFramesSQL = `
INSERT INTO frames (session_id, seq, position, bass, mid, treble, kick, amplitudes)
VALUES `

	selectFramesSQL = `
SELECT seq, position, bass, mid, treble, kick, amplitudes
FROM frames
WHERE session_id = ?
ORDER BY seq`
)

// Rows per multi-row INSERT; keeps bound variables under SQLite's default
// limit of 999.
const insertBatchRows = 120
