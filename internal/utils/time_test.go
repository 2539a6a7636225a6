package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/vladimiradmaev/chronic-care/internal/domain"
)

func TestTimeToMinutes(t *testing.T) {
	assert.Equal(t, 0, TimeToMinutes("00:00"))
	assert.Equal(t, 12*60, TimeToMinutes("12:00"))
	assert.Equal(t, 18*60+30, TimeToMinutes("18:30"))
}

func TestSlotAt(t *testing.T) {
	at := func(h, m int) time.Time { return time.Date(2026, 3, 4, h, m, 0, 0, time.UTC) }

	assert.Equal(t, domain.SlotDay, SlotAt(at(0, 0)))
	assert.Equal(t, domain.SlotDay, SlotAt(at(11, 59)))
	assert.Equal(t, domain.SlotAfternoon, SlotAt(at(12, 0)))
	assert.Equal(t, domain.SlotAfternoon, SlotAt(at(17, 59)))
	assert.Equal(t, domain.SlotNight, SlotAt(at(18, 0)))
	assert.Equal(t, domain.SlotNight, SlotAt(at(23, 59)))
}
