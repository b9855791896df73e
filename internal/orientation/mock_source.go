// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"time"

	"gonum.org/v1/gonum/num/quat"
)

type mockSource struct {
	now func() time.Time
}

// NewMockSource creates a mock orientation source that follows
// MockRotation on the shared mock clock.
func NewMockSource() Source {
	return &mockSource{now: time.Now}
}

func (m *mockSource) Next() (quat.Number, error) {
	return MockRotation(MockClock(m.now())), nil
}
