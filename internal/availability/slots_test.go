package availability

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agendapastoral/backend/internal/domain"
)

func TestGenerateTimeSlots_EndExclusive(t *testing.T) {
	slots, err := GenerateTimeSlots("09:00", "11:00", 30)
	require.NoError(t, err)
	assert.Equal(t, []string{"09:00", "09:30", "10:00", "10:30"}, slots)
}

func TestGenerateTimeSlots_CountAndBounds(t *testing.T) {
	slots, err := GenerateTimeSlots("08:00", "09:30", 30)
	require.NoError(t, err)
	require.Len(t, slots, 3)
	assert.Equal(t, "08:00", slots[0])
	assert.Equal(t, "09:00", slots[2])
	for i := 1; i < len(slots); i++ {
		assert.Less(t, slots[i-1], slots[i])
	}
}

func TestGenerateTimeSlots_DefaultGranularity(t *testing.T) {
	slots, err := GenerateTimeSlots("10:00", "11:00", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"10:00", "10:30"}, slots)
}

func TestGenerateTimeSlots_InvalidFormat(t *testing.T) {
	_, err := GenerateTimeSlots("9am", "11:00", 30)
	assert.ErrorIs(t, err, ErrInvalidTimeFormat)

	_, err = GenerateTimeSlots("09:00", "25:99", 30)
	assert.ErrorIs(t, err, ErrInvalidTimeFormat)
}

func window(pastor, date, start, end string) domain.AvailabilityWindow {
	return domain.AvailabilityWindow{PastorName: pastor, Date: date, StartTime: start, EndTime: end}
}

func TestComputeAvailableSlots_RemovesBooked(t *testing.T) {
	windows := []domain.AvailabilityWindow{window("João", "2025-03-10", "09:00", "11:00")}
	booked := []domain.Appointment{
		{PastorName: "João", Date: "2025-03-10", Time: "09:30", Status: domain.StatusConfirmed},
	}

	free, err := ComputeAvailableSlots(windows, booked, "2025-03-10")
	require.NoError(t, err)
	assert.Equal(t, []string{"09:00", "10:00", "10:30"}, free)
	assert.NotContains(t, free, "09:30")
}

func TestComputeAvailableSlots_FreeUnionBookedCoversWindow(t *testing.T) {
	windows := []domain.AvailabilityWindow{window("João", "2025-03-10", "08:00", "10:00")}
	booked := []domain.Appointment{
		{PastorName: "João", Date: "2025-03-10", Time: "08:00", Status: domain.StatusPending},
		{PastorName: "João", Date: "2025-03-10", Time: "09:30", Status: domain.StatusConfirmed},
	}

	free, err := ComputeAvailableSlots(windows, booked, "2025-03-10")
	require.NoError(t, err)

	all, err := GenerateTimeSlots("08:00", "10:00", 30)
	require.NoError(t, err)

	seen := map[string]bool{}
	for _, s := range free {
		seen[s] = true
	}
	for _, b := range booked {
		assert.False(t, seen[b.Time], "booked slot %s must not be free", b.Time)
		seen[b.Time] = true
	}
	assert.Len(t, seen, len(all))
}

func TestComputeAvailableSlots_CancelledDoesNotBlock(t *testing.T) {
	windows := []domain.AvailabilityWindow{window("João", "2025-03-10", "09:00", "10:00")}
	booked := []domain.Appointment{
		{PastorName: "João", Date: "2025-03-10", Time: "09:00", Status: domain.StatusCancelled},
	}

	free, err := ComputeAvailableSlots(windows, booked, "2025-03-10")
	require.NoError(t, err)
	assert.Contains(t, free, "09:00")
}

func TestComputeAvailableSlots_OtherPastorBookingIgnored(t *testing.T) {
	windows := []domain.AvailabilityWindow{window("João", "2025-03-10", "09:00", "10:00")}
	booked := []domain.Appointment{
		{PastorName: "Carlos", Date: "2025-03-10", Time: "09:00", Status: domain.StatusConfirmed},
	}

	free, err := ComputeAvailableSlots(windows, booked, "2025-03-10")
	require.NoError(t, err)
	assert.Contains(t, free, "09:00")
}

func TestComputeAvailableSlots_LunchBreakExcluded(t *testing.T) {
	w := window("João", "2025-03-10", "09:00", "14:00")
	w.LunchStart = "12:00"
	w.LunchEnd = "13:00"

	free, err := ComputeAvailableSlots([]domain.AvailabilityWindow{w}, nil, "2025-03-10")
	require.NoError(t, err)
	assert.NotContains(t, free, "12:00")
	assert.NotContains(t, free, "12:30")
	assert.Contains(t, free, "11:30")
	assert.Contains(t, free, "13:00")
}

func TestComputeAvailableSlots_MultipleWindowsConcatenated(t *testing.T) {
	windows := []domain.AvailabilityWindow{
		window("João", "2025-03-10", "09:00", "10:00"),
		window("João", "2025-03-10", "09:30", "10:30"),
	}

	free, err := ComputeAvailableSlots(windows, nil, "2025-03-10")
	require.NoError(t, err)
	// Overlapping windows keep their duplicates; no de-dup happens here.
	assert.Equal(t, []string{"09:00", "09:30", "09:30", "10:00"}, free)
}

func TestComputeAvailableSlots_NoWindowForDate(t *testing.T) {
	windows := []domain.AvailabilityWindow{window("João", "2025-03-11", "09:00", "10:00")}

	free, err := ComputeAvailableSlots(windows, nil, "2025-03-10")
	require.NoError(t, err)
	assert.Empty(t, free)
}

func TestComputeAvailableSlots_InvalidDate(t *testing.T) {
	_, err := ComputeAvailableSlots(nil, nil, "10/03/2025")
	assert.ErrorIs(t, err, ErrInvalidTimeFormat)
}

func TestHasDuplicateBooking_NameOrPhoneMatch(t *testing.T) {
	existing := []domain.Appointment{
		{Name: "Maria Silva", Phone: "11999990000", Date: "2025-03-10", PastorName: "João", Status: domain.StatusPending},
	}

	dup, conflicts := HasDuplicateBooking("Maria Silva", "11999990000", "2025-03-10", existing)
	assert.True(t, dup)
	require.Len(t, conflicts, 1)

	dup, _ = HasDuplicateBooking("Maria Silva", "other-phone", "2025-03-10", existing)
	assert.True(t, dup, "name match alone must flag a duplicate")

	dup, _ = HasDuplicateBooking("Other Name", "11999990000", "2025-03-10", existing)
	assert.True(t, dup, "phone match alone must flag a duplicate")
}

func TestHasDuplicateBooking_BlocksAcrossPastors(t *testing.T) {
	existing := []domain.Appointment{
		{Name: "Maria Silva", Phone: "11999990000", Date: "2025-03-10", PastorName: "João", Status: domain.StatusPending},
	}

	// Second attempt with a different pastor on the same date is still blocked.
	dup, conflicts := HasDuplicateBooking("Maria Silva", "11999990000", "2025-03-10", existing)
	assert.True(t, dup)
	assert.Equal(t, "João", conflicts[0].PastorName)
}

func TestHasDuplicateBooking_TerminalAndOtherDateIgnored(t *testing.T) {
	existing := []domain.Appointment{
		{Name: "Maria Silva", Phone: "11999990000", Date: "2025-03-10", Status: domain.StatusCancelled},
		{Name: "Maria Silva", Phone: "11999990000", Date: "2025-03-11", Status: domain.StatusPending},
	}

	dup, _ := HasDuplicateBooking("Maria Silva", "11999990000", "2025-03-10", existing)
	assert.False(t, dup)
}

func TestHasDuplicateBooking_ExactMatchOnly(t *testing.T) {
	existing := []domain.Appointment{
		{Name: "Maria Silva", Phone: "11999990000", Date: "2025-03-10", Status: domain.StatusConfirmed},
	}

	dup, _ := HasDuplicateBooking("Maria", "999", "2025-03-10", existing)
	assert.False(t, dup, "substring matches must not block submission")
}
