// SPDX-License-Identifier: MIT
package transport

import (
	"errors"
	"testing"

	"spectra/internal/log"
	"spectra/pkg/utils"
)

type failingTransport struct{ err error }

func (f failingTransport) Send(any) error { return f.err }
func (f failingTransport) Close() error   { return f.err }

func TestMulti(t *testing.T) {
	a, b := &utils.MockTransport{}, &utils.MockTransport{}
	boom := errors.New("boom")
	m := Multi{a, failingTransport{boom}, b}

	if err := m.Send("x"); !errors.Is(err, boom) {
		t.Errorf("Send error = %v, want boom", err)
	}
	if a.Count() != 1 || b.Count() != 1 {
		t.Errorf("failing transport blocked delivery: a=%d b=%d", a.Count(), b.Count())
	}
	if err := m.Close(); !errors.Is(err, boom) {
		t.Errorf("Close error = %v, want boom", err)
	}
	if !a.Closed || !b.Closed {
		t.Error("not every transport closed")
	}
	if err := (Multi{}).Send(1); err != nil {
		t.Errorf("empty Multi Send = %v", err)
	}
}

type stringer string

func (s stringer) String() string { return string(s) }

func TestLoggingTransport(t *testing.T) {
	prev := log.GetLevel()
	log.SetLevel(log.LevelDebug)
	defer log.SetLevel(prev)

	lt := NewLoggingTransport(0)
	for _, v := range []any{stringer("frame"), 42, struct{ A int }{1}} {
		if err := lt.Send(v); err != nil {
			t.Errorf("Send(%v) = %v", v, err)
		}
	}
	if lt.Count() != 3 {
		t.Errorf("Count = %d, want 3", lt.Count())
	}
	if err := lt.Close(); err != nil {
		t.Errorf("Close = %v", err)
	}
}
