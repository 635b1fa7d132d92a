package service

import "github.com/Freeeeeet/session_booking/internal/model"

// GenerateSlots нарезает окно на слоты фиксированной длины.
// Неполный хвост окна отбрасывается: 25 минут по 10 дают два слота.
func GenerateSlots(a *model.Availability) []*model.Slot {
	d := a.SlotDurationMinutes
	if d <= 0 || a.EndTime <= a.StartTime {
		return nil
	}

	slots := make([]*model.Slot, 0, a.WindowMinutes()/d)
	for cur := a.StartTime; cur+model.ClockTime(d) <= a.EndTime; cur += model.ClockTime(d) {
		slots = append(slots, &model.Slot{
			AvailabilityID: a.ID,
			TrainerID:      a.TrainerID,
			StartTime:      cur,
			EndTime:        cur + model.ClockTime(d),
			Status:         model.SlotStatusAvailable,
		})
	}

	return slots
}
