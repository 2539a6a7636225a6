package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DietEntry is the plan for one weekday
type DietEntry struct {
	Day       string `json:"day"`
	Afternoon string `json:"afternoon"`
	Night     string `json:"night"`
	Lifestyle string `json:"lifestyle"`
}

// Meal returns the text planned for slot
func (e DietEntry) Meal(slot Slot) string {
	switch slot {
	case SlotAfternoon:
		return e.Afternoon
	case SlotNight:
		return e.Night
	default:
		return e.Day
	}
}

// WeeklyDietPlan is indexed by time.Weekday, Sunday first
type WeeklyDietPlan [7]DietEntry

// Entry returns the plan for day, false when day is outside [0,6]
func (p WeeklyDietPlan) Entry(day int) (DietEntry, bool) {
	if day < 0 || day >= len(p) {
		return DietEntry{}, false
	}
	return p[day], true
}

// MarshalJSON keys the plan by weekday name
func (p WeeklyDietPlan) MarshalJSON() ([]byte, error) {
	m := make(map[string]DietEntry, len(p))
	for i, e := range p {
		m[time.Weekday(i).String()] = e
	}
	return json.Marshal(m)
}

// UnmarshalJSON reads a plan keyed by weekday name. Missing days stay empty.
func (p *WeeklyDietPlan) UnmarshalJSON(data []byte) error {
	var m map[string]DietEntry
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}

	var plan WeeklyDietPlan
	for name, e := range m {
		day := -1
		for d := time.Sunday; d <= time.Saturday; d++ {
			if d.String() == name {
				day = int(d)
				break
			}
		}
		if day < 0 {
			return fmt.Errorf("unknown weekday %q", name)
		}
		plan[day] = e
	}
	*p = plan
	return nil
}

// WeekdayShort returns the three-letter name of day
func WeekdayShort(day int) string {
	return time.Weekday(day).String()[:3]
}

// ParseWeekday accepts an index 0-6 or an English weekday name
func ParseWeekday(s string) (int, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.EqualFold(d.String(), s) {
			return int(d), nil
		}
	}
	return 0, fmt.Errorf("unknown weekday %q", s)
}

// DefaultDietPlan is the static reference plan
func DefaultDietPlan() WeeklyDietPlan {
	return WeeklyDietPlan{
		time.Sunday: {
			Day:       "Vegetable poha with sprouts, unsweetened tea",
			Afternoon: "Brown rice, dal, cucumber salad",
			Night:     "Two multigrain rotis, paneer bhurji, sauteed greens",
			Lifestyle: "30 min relaxed walk, plan meals for the week",
		},
		time.Monday: {
			Day:       "Oats porridge with nuts, boiled egg",
			Afternoon: "Two rotis, rajma, mixed salad",
			Night:     "Grilled fish or tofu, steamed vegetables",
			Lifestyle: "30 min brisk walk after lunch",
		},
		time.Tuesday: {
			Day:       "Moong dal chilla with mint chutney",
			Afternoon: "Millet khichdi, curd, carrot salad",
			Night:     "Vegetable soup, one roti, stir-fried beans",
			Lifestyle: "15 min stretching, limit salt",
		},
		time.Wednesday: {
			Day:       "Idli with sambar, no sugar coffee",
			Afternoon: "Brown rice, chickpea curry, beetroot salad",
			Night:     "Two rotis, mixed vegetable curry, buttermilk",
			Lifestyle: "Yoga session, check blood pressure",
		},
		time.Thursday: {
			Day:       "Whole wheat toast, peanut butter, apple",
			Afternoon: "Quinoa pulao, dal, cabbage salad",
			Night:     "Chicken or soya curry, one roti, salad",
			Lifestyle: "30 min cycling or brisk walk",
		},
		time.Friday: {
			Day:       "Ragi dosa with coconut chutney",
			Afternoon: "Two rotis, palak dal, cucumber raita",
			Night:     "Lentil soup, grilled vegetables",
			Lifestyle: "Light strength training, 7 hours sleep",
		},
		time.Saturday: {
			Day:       "Vegetable upma, handful of almonds",
			Afternoon: "Brown rice, fish or paneer curry, salad",
			Night:     "Multigrain roti, bottle gourd curry, curd",
			Lifestyle: "Outdoor activity with family, no sugary drinks",
		},
	}
}
