// Package catalog is the fixed list of activities a roll can land on.
// Order matters: roll N selects the activity at index N-1.
package catalog

import "math/rand/v2"

type Activity struct {
	ID          string
	Name        string
	Description string
}

var activities = []Activity{
	{ID: "walk-street", Name: "Street walk", Description: "An easy 5-10 minute walk around the block at a comfortable pace."},
	{ID: "indoor-bike", Name: "Exercise bike", Description: "5-10 minutes of light pedalling with low resistance."},
	{ID: "physio", Name: "Physiotherapy", Description: "A short, controlled block of your usual physio routine."},
	{ID: "gardening", Name: "Gardening (houseplants)", Description: "5-10 minutes of plant care: watering, wiping leaves, tidying up."},
	{ID: "light-mobility", Name: "Light mobility", Description: "Head and shoulder circles, elbow and wrist movements, gentle loosening."},
	{ID: "stretching", Name: "Stretching", Description: "5-10 minutes of gentle stretching: hamstrings, calves, chest and back."},
	{ID: "stairs", Name: "Slow stairs (holding on)", Description: "A few minutes of careful stair climbing with the handrail, pausing as needed."},
	{ID: "balance", Name: "Balance practice (holding on)", Description: "Stand on one leg while holding on, slow heel-toe shifts, safety first."},
	{ID: "house-focus", Name: "Light housework focus", Description: "5-10 minutes tidying one shelf or surface, bending carefully."},
	{ID: "breath-neck", Name: "Breathing + shoulders/neck", Description: "Deep belly breathing, slow shoulder rolls and neck release."},
	{ID: "arm-shoulder-circles", Name: "Arm and shoulder circles", Description: "Loose arm swings and shoulder circles for 5-10 minutes, pain-free range only."},
	{ID: "ankle-toe", Name: "Ankle circles and tiptoes", Description: "Seated ankle circles, then careful rises onto the toes while holding on."},
	{ID: "wall-sit-light", Name: "Short wall squats", Description: "Very short wall squats or a mini hold, only in a comfortable range."},
	{ID: "sun-salute-light", Name: "Sun salutation (light)", Description: "A very gentle, modified sun salutation or standing yoga sequence in 5-8 minutes."},
	{ID: "hip-mobility-seated", Name: "Seated hip mobility", Description: "Seated knee and hip circles, slow side bends, comfortably."},
	{ID: "cat-cow", Name: "Back stretch (cat-cow)", Description: "On all fours or standing, slow arching and rounding for 5 minutes."},
	{ID: "wrist-care", Name: "Hand and wrist exercises", Description: "Wrist circles, opening and closing the fingers, soft palm presses on a table."},
	{ID: "eye-rest", Name: "Eye rest + blinking", Description: "5 minutes of deliberate blinking, near-far focus shifts, seated eye circles."},
	{ID: "tiny-cleaning", Name: "Mini clean of one surface", Description: "Wipe and tidy one table top or counter in 5-10 minutes."},
	{ID: "towel-pull", Name: "Light towel pull", Description: "Seated, pull and release a towel with both hands to wake up back and arms."},
}

var byID = func() map[string]Activity {
	m := make(map[string]Activity, len(activities))
	for _, a := range activities {
		m[a.ID] = a
	}
	return m
}()

// Sides is the number of faces on the die, one per activity.
var Sides = len(activities)

// All returns the catalog in roll order.
func All() []Activity {
	out := make([]Activity, len(activities))
	copy(out, activities)
	return out
}

func ByID(id string) (Activity, bool) {
	a, ok := byID[id]
	return a, ok
}

// ForRoll maps a 1-based roll onto the catalog. Out-of-range rolls are
// clamped, so it never fails.
func ForRoll(roll int) Activity {
	switch {
	case roll < 1:
		return activities[0]
	case roll > len(activities):
		return activities[len(activities)-1]
	}
	return activities[roll-1]
}

// Roll returns a uniformly random roll in [1, Sides].
func Roll() int {
	return rand.IntN(Sides) + 1
}

// Name returns the display name for id, or a placeholder for ids the
// catalog no longer knows.
func Name(id string) string {
	if a, ok := byID[id]; ok {
		return a.Name
	}
	return "Unknown activity"
}
