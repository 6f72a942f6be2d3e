package models

// AgeRange bounds are optional; nil means "no bound".
type AgeRange struct {
	Min *int `json:"min" bson:"min"`
	Max *int `json:"max" bson:"max"`
}

// AudienceTarget describes who the funnel is built for.
type AudienceTarget struct {
	Niche    string   `json:"niche" bson:"niche"`
	SubNiche string   `json:"subNiche" bson:"subNiche"`
	AgeRange AgeRange `json:"ageRange" bson:"ageRange"`
	Gender   string   `json:"gender" bson:"gender"` // female | male | both | ""
}

// CommunicationTone is the voice the funnel copy should use.
type CommunicationTone string

const (
	ToneHumanMotivational      CommunicationTone = "human_motivational"
	ToneFormalTechnical        CommunicationTone = "formal_technical"
	ToneClearPractical         CommunicationTone = "clear_practical"
	ToneFriendlyLight          CommunicationTone = "friendly_light"
	ToneEducationalExplanatory CommunicationTone = "educational_explanatory"
	TonePersuasiveCommercial   CommunicationTone = "persuasive_commercial"
	ToneUrgentImpactful        CommunicationTone = "urgent_impactful"
	ToneAdvisoryConsultative   CommunicationTone = "advisory_consultative"
)

// AudienceInsights holds generated insight data for a funnel's audience.
type AudienceInsights struct {
	MainPains         []string          `json:"mainPains" bson:"mainPains"`
	CommunicationTone CommunicationTone `json:"communicationTone" bson:"communicationTone"`
}
