package offers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// TestRemainingValidity покрывает граничные случаи вычисления срока
// действия: ровно ноль часов — это ещё не "expired", а множественное
// число используется для любого количества, кроме ровно одного часа
func TestRemainingValidity(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	testCases := []struct {
		name      string
		expiresAt time.Time
		expected  Validity
	}{
		{
			name:      "ровно сейчас — ноль часов, не expired",
			expiresAt: now,
			expected:  Validity{Count: 0, Label: LabelHours},
		},
		{
			name:      "секунда назад — expired",
			expiresAt: now.Add(-time.Second),
			expected:  Validity{Label: LabelExpired},
		},
		{
			name:      "ровно один час — единственное число",
			expiresAt: now.Add(time.Hour),
			expected:  Validity{Count: 1, Label: LabelHour},
		},
		{
			name:      "полтора часа — целый один час",
			expiresAt: now.Add(90 * time.Minute),
			expected:  Validity{Count: 1, Label: LabelHour},
		},
		{
			name:      "два часа — множественное число",
			expiresAt: now.Add(2 * time.Hour),
			expected:  Validity{Count: 2, Label: LabelHours},
		},
		{
			name:      "меньше часа — ноль часов во множественном числе",
			expiresAt: now.Add(59 * time.Minute),
			expected:  Validity{Count: 0, Label: LabelHours},
		},
		{
			name:      "двое суток",
			expiresAt: now.Add(48 * time.Hour),
			expected:  Validity{Count: 48, Label: LabelHours},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := RemainingValidity(tc.expiresAt, now)
			assert.Equal(t, tc.expected, got)
		})
	}
}
