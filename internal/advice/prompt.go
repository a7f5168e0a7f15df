package advice

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Skufu/diabetes-risk/internal/risk"
	"github.com/Skufu/diabetes-risk/internal/survey"
)

// Disclaimer closes every piece of generated advice.
const Disclaimer = "This is NOT medical advice. Please consult your family doctor, nurse practitioner, or certified diabetes educator for personalized care."

// Request carries what the coach needs to personalize advice.
type Request struct {
	Answers  survey.Answers
	Estimate risk.Estimate
}

// BuildPrompt renders the coaching prompt for req.
func BuildPrompt(req Request) string {
	a := req.Answers
	var b strings.Builder

	b.WriteString("You are a friendly, supportive diabetes prevention coach from Diabetes Canada, based in Ontario.\n\n")

	b.WriteString("User profile:\n")
	profile := [][2]string{
		{"Sex", a.Sex},
		{"Age group", a.AgeGroup},
		{"BMI", fmt.Sprintf("%.1f", a.BMI)},
		{"General health", a.GeneralHealth},
		{"Days of poor physical health last month", reportedDays(a.PhysicalHealthDays)},
		{"Stroke history", a.Stroke},
		{"Fruit/veg intake", a.FruitVeg},
		{"Physical activity last month", a.PhysicalActivity},
		{"Heart disease/heart attack history", a.HeartDisease},
		{"Race/ethnicity", a.Race},
		{"Education", a.Education},
		{"Smoking status", a.Smoker},
	}
	for _, kv := range profile {
		fmt.Fprintf(&b, "- %s: %s\n", kv[0], strings.TrimSpace(kv[1]))
	}

	fmt.Fprintf(&b, "\nEstimated risk level: %s (%s probability)\n\n", req.Estimate.Tier, req.Estimate.Percent())

	b.WriteString("Write warm, encouraging, practical advice (250–400 words) focusing on:\n")
	for _, topic := range []string{
		"Healthy eating",
		"Regular physical activity",
		"Weight management",
		"Stress reduction",
		"Regular screening/check-ups",
	} {
		b.WriteString("- " + topic + "\n")
	}
	b.WriteString("\nInclude 3–5 specific, achievable tips.\n\n")

	b.WriteString("Mention Toronto/GTA resources:\n")
	for _, res := range []string{
		"Diabetes Education Program at Toronto General Hospital or Sunnybrook Health Sciences Centre",
		"Community health programs in GTA",
		"Diabetes Canada free virtual classes & support groups",
		"Diabetes Canada helpline: 1-800-226-8464 or www.diabetes.ca",
	} {
		b.WriteString("- " + res + "\n")
	}

	fmt.Fprintf(&b, "\nEnd with strong disclaimer:\n%q\n", Disclaimer)
	return b.String()
}

func reportedDays(days *int) string {
	if days == nil {
		return "not answered"
	}
	return strconv.Itoa(*days)
}
