package services

import (
	"github.com/vladimiradmaev/chronic-care/internal/domain"
)

// SafetyLevel classifies a lab result
type SafetyLevel string

const (
	SafetyUnknown SafetyLevel = "unknown"
	SafetyNormal  SafetyLevel = "normal"
	SafetyCaution SafetyLevel = "caution"
	SafetyUrgent  SafetyLevel = "urgent"
)

// ADA-based glucose thresholds in mg/dL
const (
	FastingLow       = 70.0
	FastingTargetMin = 80.0
	FastingTargetMax = 130.0
	PostMealTarget   = 180.0
	RedFlag          = 250.0
)

// Disclaimer accompanies every generated recommendation
const Disclaimer = "This is not medical advice. Always consult your healthcare provider " +
	"before changing your care plan. In an emergency contact your doctor or emergency services."

// SafetyResult is the outcome of CheckGlucoseSafety
type SafetyResult struct {
	Level              SafetyLevel `json:"level"`
	Flags              []string    `json:"flags"`
	EscalationRequired bool        `json:"escalationRequired"`
	Message            string      `json:"message"`
}

// CheckGlucoseSafety compares a lab result against the thresholds.
// A result that was never submitted is SafetyUnknown.
func CheckGlucoseSafety(r domain.LabResult) SafetyResult {
	if !r.Submitted() {
		return SafetyResult{Level: SafetyUnknown, Message: "No test results yet"}
	}

	res := SafetyResult{Level: SafetyNormal, Message: "Readings are within the target range"}
	// The first finding of the highest level provides the message.
	urgent := func(flag, msg string) {
		if res.Level != SafetyUrgent {
			res.Message = msg
		}
		res.Level = SafetyUrgent
		res.EscalationRequired = true
		res.Flags = append(res.Flags, flag)
	}
	caution := func(flag, msg string) {
		if res.Level == SafetyNormal {
			res.Level = SafetyCaution
			res.Message = msg
		}
		res.Flags = append(res.Flags, flag)
	}

	switch f := r.FastingSugar; {
	case f >= RedFlag:
		urgent("Fasting glucose extremely high",
			"URGENT: fasting glucose is critically high (>= 250 mg/dL). Contact your healthcare provider immediately.")
	case f < FastingLow:
		urgent("Hypoglycemia risk",
			"URGENT: fasting glucose is too low (< 70 mg/dL). Contact your healthcare provider.")
	case f > FastingTargetMax:
		caution("Fasting glucose above target range",
			"Fasting glucose is above the target range (80-130 mg/dL). Consider discussing this with your healthcare provider.")
	}

	switch p := r.PostMealSugar; {
	case p >= RedFlag:
		urgent("Post-meal glucose extremely high",
			"URGENT: post-meal glucose is critically high (>= 250 mg/dL). Contact your healthcare provider immediately.")
	case p > PostMealTarget:
		caution("Post-meal glucose above target",
			"Post-meal glucose is above the target (< 180 mg/dL).")
	}

	return res
}
