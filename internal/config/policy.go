package config

import (
	"github.com/iliyamo/campus-space-reservation/internal/booking"
	"github.com/iliyamo/campus-space-reservation/internal/model"
)

// LoadPolicies builds the per-resource-type booking rules, starting from
// the engine defaults and applying environment overrides.  Seats and rooms
// are configured independently; there is deliberately no shared knob.
func LoadPolicies() map[model.ResourceType]booking.PolicyConfig {
	seat := booking.DefaultSeatPolicy()
	seat.MinLeadTime = envDur("SEAT_MIN_LEAD_TIME", seat.MinLeadTime)
	seat.MaxDuration = envDur("SEAT_MAX_DURATION", seat.MaxDuration)
	seat.DailyCountCap = envInt("SEAT_DAILY_COUNT_CAP", seat.DailyCountCap)
	seat.WeeklyMinutesCap = envInt("SEAT_WEEKLY_MINUTES_CAP", seat.WeeklyMinutesCap)
	seat.NoShowGrace = envDur("SEAT_NO_SHOW_GRACE", seat.NoShowGrace)
	seat.LateCheckInGrace = envDur("SEAT_LATE_CHECKIN_GRACE", seat.LateCheckInGrace)

	room := booking.DefaultRoomPolicy()
	room.MinLeadTime = envDur("ROOM_MIN_LEAD_TIME", room.MinLeadTime)
	room.MaxDuration = envDur("ROOM_MAX_DURATION", room.MaxDuration)
	room.DailyCountCap = envInt("ROOM_DAILY_COUNT_CAP", room.DailyCountCap)
	room.WeeklyMinutesCap = envInt("ROOM_WEEKLY_MINUTES_CAP", room.WeeklyMinutesCap)
	room.NoShowGrace = envDur("ROOM_NO_SHOW_GRACE", room.NoShowGrace)
	room.LateCheckInGrace = envDur("ROOM_LATE_CHECKIN_GRACE", room.LateCheckInGrace)

	return map[model.ResourceType]booking.PolicyConfig{
		model.ResourceSeat: seat,
		model.ResourceRoom: room,
	}
}
