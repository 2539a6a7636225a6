package keyboards

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/vladimiradmaev/chronic-care/internal/domain"
)

// Callback data
const (
	Login           = "login"
	Logout          = "logout"
	EditUsername    = "edit:username"
	EditAge         = "edit:age"
	ChooseRegion    = "regions"
	EnterLabResult  = "enter:lab"
	EnterMedication = "enter:medication"
	Trend           = "trend"
	Advice          = "advice"

	navPrefix       = "nav:"
	conditionPrefix = "cond:"
	regionPrefix    = "region:"
	activityPrefix  = "act:"
	dayPrefix       = "day:"
)

// NavData is the callback data that opens page
func NavData(page domain.Page) string {
	return navPrefix + page.String()
}

// ConditionData is the callback data that sets condition
func ConditionData(c domain.Condition) string {
	return conditionPrefix + string(c)
}

// RegionData is the callback data that sets the region at index i of domain.Regions
func RegionData(i int) string {
	return fmt.Sprintf("%s%d", regionPrefix, i)
}

// ActivityData is the callback data that toggles one checklist flag
func ActivityData(slot domain.Slot, flag domain.ActivityFlag) string {
	return activityPrefix + string(slot) + ":" + string(flag)
}

// DayData is the callback data that selects a diet plan day
func DayData(day int) string {
	return fmt.Sprintf("%s%d", dayPrefix, day)
}

// Split returns the prefix kind and argument of callback data
func Split(data string) (kind, arg string) {
	for _, p := range []string{navPrefix, conditionPrefix, regionPrefix, activityPrefix, dayPrefix} {
		if strings.HasPrefix(data, p) {
			return strings.TrimSuffix(p, ":"), strings.TrimPrefix(data, p)
		}
	}
	return data, ""
}

func backRow() []tgbotapi.InlineKeyboardButton {
	return tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("◀️ Back to Dashboard", NavData(domain.PageDashboard)),
	)
}

// LoginMenu creates the login keyboard
func LoginMenu() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔑 Log in", Login),
		),
	)
}

// DashboardMenu creates the main menu keyboard
func DashboardMenu() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Today's activity", NavData(domain.PageActivity)),
			tgbotapi.NewInlineKeyboardButtonData("🥗 Diet plan", NavData(domain.PageDietPlan)),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🩸 Test results", NavData(domain.PageTestUpload)),
			tgbotapi.NewInlineKeyboardButtonData("💊 Medication", NavData(domain.PageMedication)),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📈 Trend", Trend),
			tgbotapi.NewInlineKeyboardButtonData("💡 Care tip", Advice),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⚙️ Settings", NavData(domain.PageSettings)),
			tgbotapi.NewInlineKeyboardButtonData("🚪 Log out", Logout),
		),
	)
}

// SettingsMenu creates the settings menu keyboard
func SettingsMenu(current domain.Condition) tgbotapi.InlineKeyboardMarkup {
	var conditions []tgbotapi.InlineKeyboardButton
	for _, c := range domain.Conditions() {
		label := string(c)
		if c == current {
			label = "• " + label
		}
		conditions = append(conditions, tgbotapi.NewInlineKeyboardButtonData(label, ConditionData(c)))
	}

	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✏️ Name", EditUsername),
			tgbotapi.NewInlineKeyboardButtonData("🎂 Age", EditAge),
			tgbotapi.NewInlineKeyboardButtonData("🌍 Region", ChooseRegion),
		),
		conditions,
		backRow(),
	)
}

// RegionMenu lists the selectable regions, two per row
func RegionMenu() tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for i := 0; i < len(domain.Regions); i += 2 {
		row := tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(domain.Regions[i], RegionData(i)),
		)
		if i+1 < len(domain.Regions) {
			row = append(row, tgbotapi.NewInlineKeyboardButtonData(domain.Regions[i+1], RegionData(i+1)))
		}
		rows = append(rows, row)
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("◀️ Back", NavData(domain.PageSettings)),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// ActivityMenu creates one toggle per tracked flag
func ActivityMenu(log domain.ActivityLog) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, slot := range domain.Slots() {
		var row []tgbotapi.InlineKeyboardButton
		for _, flag := range slot.Flags() {
			mark := "⬜"
			if log.Slot(slot).Flag(flag) {
				mark = "✅"
			}
			label := fmt.Sprintf("%s %s %s", mark, slot, flag)
			row = append(row, tgbotapi.NewInlineKeyboardButtonData(label, ActivityData(slot, flag)))
		}
		rows = append(rows, row)
	}
	rows = append(rows, backRow())
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// DietPlanMenu creates the weekday picker
func DietPlanMenu(selected int) tgbotapi.InlineKeyboardMarkup {
	var first, second []tgbotapi.InlineKeyboardButton
	for d := 0; d < 7; d++ {
		label := domain.WeekdayShort(d)
		if d == selected {
			label = "• " + label
		}
		btn := tgbotapi.NewInlineKeyboardButtonData(label, DayData(d))
		if d < 4 {
			first = append(first, btn)
		} else {
			second = append(second, btn)
		}
	}
	return tgbotapi.NewInlineKeyboardMarkup(first, second, backRow())
}

// TestUploadMenu creates the test results keyboard
func TestUploadMenu() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📝 Enter results", EnterLabResult),
		),
		backRow(),
	)
}

// MedicationMenu creates the medication plan keyboard
func MedicationMenu() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📝 Edit plan", EnterMedication),
		),
		backRow(),
	)
}

// Cancel creates a keyboard that abandons a prompt and reopens page
func Cancel(page domain.Page) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("◀️ Cancel", NavData(page)),
		),
	)
}
