package measurement

import (
	"time"

	"github.com/google/uuid"

	"github.com/FabFari/recipex-app-engine/pkg/apperror"
)

// Kind enumerates the supported vital-sign measurement kinds.
type Kind string

const (
	KindBloodPressure Kind = "BP"
	KindHeartRate     Kind = "HR"
	KindRespirations  Kind = "RR"
	KindSpO2          Kind = "SpO2"
	KindGlucose       Kind = "HGT"
	KindTemperature   Kind = "TMP"
	KindPain          Kind = "PAIN"
	KindCholesterol   Kind = "CHL"
)

// Measurement maps to the measurements table. Exactly the value columns of
// its kind are set; the rest stay null.
type Measurement struct {
	ID           uuid.UUID `db:"id" json:"id"`
	UserID       uuid.UUID `db:"user_id" json:"user_id"`
	TakenAt      time.Time `db:"taken_at" json:"taken_at"`
	Kind         Kind      `db:"kind" json:"kind"`
	Note         *string   `db:"note" json:"note,omitempty"`
	Systolic     *int      `db:"systolic" json:"systolic,omitempty"`
	Diastolic    *int      `db:"diastolic" json:"diastolic,omitempty"`
	BPM          *int      `db:"bpm" json:"bpm,omitempty"`
	Respirations *int      `db:"respirations" json:"respirations,omitempty"`
	SpO2         *float64  `db:"spo2" json:"spo2,omitempty"`
	HGT          *float64  `db:"hgt" json:"hgt,omitempty"`
	Degrees      *float64  `db:"degrees" json:"degrees,omitempty"`
	NRS          *int      `db:"nrs" json:"nrs,omitempty"`
	ChlLevel     *float64  `db:"chl_level" json:"chl_level,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

func intInRange(name string, v *int, min, max int) error {
	if v == nil {
		return apperror.BadRequest("%s is required", name)
	}
	if *v < min || *v > max {
		return apperror.BadRequest("%s must be between %d and %d", name, min, max)
	}
	return nil
}

func floatInRange(name string, v *float64, min, max float64) error {
	if v == nil {
		return apperror.BadRequest("%s is required", name)
	}
	if *v < min || *v > max {
		return apperror.BadRequest("%s must be between %g and %g", name, min, max)
	}
	return nil
}

// Validate checks that the value columns required by the measurement's kind
// are present and within their physiological ranges.
func (m *Measurement) Validate() error {
	if m.TakenAt.IsZero() {
		return apperror.BadRequest("taken_at is required")
	}
	switch m.Kind {
	case KindBloodPressure:
		if err := intInRange("systolic", m.Systolic, 0, 250); err != nil {
			return err
		}
		return intInRange("diastolic", m.Diastolic, 0, 250)
	case KindHeartRate:
		return intInRange("bpm", m.BPM, 0, 400)
	case KindRespirations:
		return intInRange("respirations", m.Respirations, 0, 200)
	case KindSpO2:
		return floatInRange("spo2", m.SpO2, 0, 100)
	case KindGlucose:
		return floatInRange("hgt", m.HGT, 0, 600)
	case KindTemperature:
		return floatInRange("degrees", m.Degrees, 30, 45)
	case KindPain:
		return intInRange("nrs", m.NRS, 0, 10)
	case KindCholesterol:
		return floatInRange("chl_level", m.ChlLevel, 0, 800)
	default:
		return apperror.BadRequest("unrecognized measurement kind %q", m.Kind)
	}
}
