package menus

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/vladimiradmaev/chronic-care/internal/bot/keyboards"
	"github.com/vladimiradmaev/chronic-care/internal/domain"
	"github.com/vladimiradmaev/chronic-care/internal/services"
)

// Sender delivers messages to Telegram; *tgbotapi.BotAPI implements it
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// SendPage renders the visible page of snap to a chat
func SendPage(api Sender, chatID int64, snap domain.Snapshot) error {
	text, keyboard := Render(snap)
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = keyboard
	_, err := api.Send(msg)
	return err
}

// SendRegionMenu sends the region picker
func SendRegionMenu(api Sender, chatID int64, current string) error {
	msg := tgbotapi.NewMessage(chatID, fmt.Sprintf("🌍 Choose your region (current: %s):", current))
	msg.ReplyMarkup = keyboards.RegionMenu()
	_, err := api.Send(msg)
	return err
}

// Render returns the text and keyboard of the page a user should see
func Render(snap domain.Snapshot) (string, tgbotapi.InlineKeyboardMarkup) {
	switch page := snap.VisiblePage(); page {
	case domain.PageLogin:
		return loginText(), keyboards.LoginMenu()
	case domain.PageDashboard:
		return dashboardText(snap), keyboards.DashboardMenu()
	case domain.PageSettings:
		return settingsText(snap.Profile), keyboards.SettingsMenu(snap.Profile.Condition)
	case domain.PageActivity:
		return activityText(snap.Activity), keyboards.ActivityMenu(snap.Activity)
	case domain.PageDietPlan:
		return dietPlanText(snap), keyboards.DietPlanMenu(snap.SelectedDay)
	case domain.PageTestUpload:
		return testUploadText(snap.LabResult), keyboards.TestUploadMenu()
	case domain.PageMedication:
		return medicationText(snap.Medication), keyboards.MedicationMenu()
	default:
		panic(fmt.Sprintf("menus: no renderer for page %q", page))
	}
}

func loginText() string {
	return `🩺 Chronic Care Companion

Track your diabetes and blood pressure care: daily checklist, diet plan, test results and medication.

Please log in to continue.`
}

func dashboardText(snap domain.Snapshot) string {
	d := services.BuildDashboard(snap)

	var b strings.Builder
	fmt.Fprintf(&b, "👋 Welcome, %s\n\n", d.Username)
	fmt.Fprintf(&b, "👤 %d years • %s • %s\n\n", d.Age, d.Condition, d.Region)

	b.WriteString("🩸 Latest test: ")
	if d.LabResult.Submitted() {
		fmt.Fprintf(&b, "fasting %.0f, post-meal %.0f mg/dL (%s)\n",
			d.LabResult.FastingSugar, d.LabResult.PostMealSugar, d.LabResult.DateString())
		fmt.Fprintf(&b, "%s %s\n", safetyIcon(d.Safety.Level), d.Safety.Message)
	} else {
		b.WriteString("no results yet\n")
	}

	fmt.Fprintf(&b, "\n✅ Today's activity: %d/%d done\n", d.ActivityDone, d.ActivityTotal)
	fmt.Fprintf(&b, "💊 Tablets per day: %d\n", d.TabletsPerDay)
	fmt.Fprintf(&b, "🥗 %s: %s", d.DietDay, d.Diet.Day)
	return b.String()
}

func safetyIcon(level services.SafetyLevel) string {
	switch level {
	case services.SafetyUrgent:
		return "🚨"
	case services.SafetyCaution:
		return "⚠️"
	case services.SafetyNormal:
		return "✅"
	default:
		return "ℹ️"
	}
}

func settingsText(p domain.UserProfile) string {
	return fmt.Sprintf(`⚙️ Settings

Name: %s
Age: %d
Condition: %s
Region: %s

Tap a condition below to change it.`, p.Username, p.Age, p.Condition, p.Region)
}

func activityText(log domain.ActivityLog) string {
	done, total := log.Progress()
	return fmt.Sprintf("✅ Today's activity (%d/%d)\n\nTap an item to mark it done or undo it.", done, total)
}

func dietPlanText(snap domain.Snapshot) string {
	day, entry, _ := snap.SelectedDiet()
	return fmt.Sprintf(`🥗 Diet plan for %s

🌅 Morning: %s
☀️ Afternoon: %s
🌙 Night: %s

💡 %s`, day, entry.Day, entry.Afternoon, entry.Night, entry.Lifestyle)
}

func testUploadText(r domain.LabResult) string {
	if !r.Submitted() {
		return "🩸 Test results\n\nNo results submitted yet."
	}
	safety := services.CheckGlucoseSafety(r)
	return fmt.Sprintf(`🩸 Test results (%s)

Fasting sugar: %.0f mg/dL
Post-meal sugar: %.0f mg/dL

%s %s`, r.DateString(), r.FastingSugar, r.PostMealSugar, safetyIcon(safety.Level), safety.Message)
}

func medicationText(p domain.MedicationPlan) string {
	return fmt.Sprintf(`💊 Medication plan

Day: %d
Afternoon: %d
Night: %d

Total: %d tablets per day`, p.Day, p.Afternoon, p.Night, p.Total())
}
