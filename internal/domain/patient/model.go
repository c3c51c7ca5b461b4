package patient

import (
	"math"

	"github.com/google/uuid"
)

// Medication is one entry in a patient's current medication list. Entries are
// immutable once recorded; identity is positional, there is no separate id.
type Medication struct {
	Name      string `json:"name" validate:"required"`
	Dosage    string `json:"dosage"`
	Frequency string `json:"frequency"`
}

// Vitals captures the measurements taken at intake.
type Vitals struct {
	BloodPressure string  `json:"blood_pressure"`
	HeartRate     int     `json:"heart_rate" validate:"omitempty,gte=0,lte=300"`
	Temperature   float64 `json:"temperature" validate:"omitempty,gte=0,lte=45"`
}

// Record is the demographic and clinical snapshot collected at intake. It is
// created once per session and treated as immutable afterwards; correcting a
// mistake means restarting the session with a new record.
type Record struct {
	ID                uuid.UUID    `json:"id"`
	Age               int          `json:"age" validate:"required,gt=0,lte=130"`
	Gender            string       `json:"gender"`
	WeightKg          float64      `json:"weight_kg" validate:"omitempty,gt=0"`
	HeightCm          float64      `json:"height_cm" validate:"omitempty,gt=0"`
	BMI               float64      `json:"bmi"`
	Vitals            Vitals       `json:"vitals"`
	SmokingStatus     string       `json:"smoking_status"`
	AlcoholUse        string       `json:"alcohol_use"`
	ExerciseFrequency string       `json:"exercise_frequency"`
	Allergies         []string     `json:"allergies"`
	Conditions        []string     `json:"conditions"`
	Medications       []Medication `json:"medications" validate:"omitempty,dive"`
	PrimaryComplaint  string       `json:"primary_complaint" validate:"required"`
	Notes             string       `json:"notes"`
}

// DeriveBMI computes and stores the body mass index from weight and height,
// rounded to one decimal. Missing measurements leave BMI at zero.
func (r *Record) DeriveBMI() {
	if r.WeightKg <= 0 || r.HeightCm <= 0 {
		r.BMI = 0
		return
	}
	m := r.HeightCm / 100
	r.BMI = math.Round(r.WeightKg/(m*m)*10) / 10
}
