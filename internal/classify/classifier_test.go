package classify_test

import (
	"testing"
	"time"

	"github.com/aretw0/stagegate/internal/classify"
	"github.com/aretw0/stagegate/internal/extract"
	"github.com/aretw0/stagegate/internal/lexicon"
	"github.com/aretw0/stagegate/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func newClassifier(t testing.TB) *classify.Classifier {
	t.Helper()
	lex, err := lexicon.Default()
	require.NoError(t, err)
	clock := func() time.Time { return time.Date(2026, time.October, 16, 0, 0, 0, 0, time.UTC) }
	return classify.New(lex, extract.New(lex, extract.WithClock(clock)))
}

func TestClassify_Intent(t *testing.T) {
	c := newClassifier(t)

	tests := []struct {
		message string
		intent  string
		agent   domain.Team
	}{
		{"I need to cancel my flight", domain.IntentCancellation, domain.TeamCustomerService},
		{"I want to fly to Paris", domain.IntentFlightSearch, domain.TeamFlights},
		{"looking for a hotel in Rome", domain.IntentHotelSearch, domain.TeamHotels},
		{"my credit card was declined", domain.IntentPaymentIssue, domain.TeamPayments},
		{"hello there", domain.IntentGeneralInquiry, domain.TeamCustomerService},
	}
	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			cls := c.Classify(tt.message, domain.LanguageEnglish, nil)
			assert.Equal(t, tt.intent, cls.Intent)
			assert.Equal(t, tt.agent, cls.RecommendedAgent)
		})
	}
}

func TestClassify_ClearIntentMissingContext(t *testing.T) {
	c := newClassifier(t)

	cls := c.Classify("I want to fly to Paris", domain.LanguageEnglish, nil)
	assert.Equal(t, domain.ChaosClear, cls.Chaos)
	assert.Equal(t, []string{"departure_date", "origin", "passengers"}, cls.MissingContext)
	assert.Equal(t, []string{"When would you like to depart?", "Which city will you be leaving from?"}, cls.ClarifyingQuestions)
	assert.Equal(t, domain.StageNarrowing, cls.ConversationStage)
	assert.True(t, cls.Forbids(domain.ActionSkipStages))
	assert.True(t, cls.Forbids(domain.ActionExecuteSearch))
	assert.Empty(t, cls.SuggestedDestinations)
}

func TestClassify_ChaosPriority(t *testing.T) {
	c := newClassifier(t)

	tests := []struct {
		name    string
		message string
		want    domain.ChaosCategory
	}{
		{"family beats budget", "a cheap trip with my kids somewhere", domain.ChaosFamily},
		{"budget beats exploratory", "somewhere cheap, any ideas?", domain.ChaosBudget},
		{"exploratory", "any ideas for a beach getaway next year?", domain.ChaosExploratory},
		{"low information", "hi", domain.ChaosLowInformation},
		{"chaotic", "maybe tomorrow or maybe next month, not sure, something warm", domain.ChaosChaotic},
		{"clear", "flights from Lisbon to Madrid on 10 November", domain.ChaosClear},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cls := c.Classify(tt.message, domain.LanguageEnglish, nil)
			assert.Equal(t, tt.want, cls.Chaos)
			assert.LessOrEqual(t, len(cls.ClarifyingQuestions), domain.MaxClarifyingQuestions)
		})
	}
}

func TestClassify_Suggestions(t *testing.T) {
	c := newClassifier(t)

	cls := c.Classify("any ideas for a beach getaway?", domain.LanguageEnglish, nil)
	assert.Equal(t, "beach", cls.RegionHint)
	assert.Contains(t, cls.SuggestedDestinations, "Cancún")

	family := c.Classify("a trip with the kids", domain.LanguageEnglish, nil)
	assert.Contains(t, family.SuggestedDestinations, "Orlando")

	known := c.Classify("a trip with the kids to Lisbon", domain.LanguageEnglish, nil)
	assert.Empty(t, known.SuggestedDestinations, "no suggestions once a destination is known")
}

func TestClassify_QuestionsUseLanguage(t *testing.T) {
	c := newClassifier(t)

	cls := c.Classify("oi", domain.LanguagePortuguese, nil)
	require.NotEmpty(t, cls.ClarifyingQuestions)
	assert.Equal(t, "Para onde você gostaria de ir?", cls.ClarifyingQuestions[0])
}

func TestClassify_ConfirmationQuestion(t *testing.T) {
	c := newClassifier(t)

	sc := domain.NewSessionContext("s1", time.Now())
	sc.Data.Merge(map[domain.SlotName]domain.Slot{
		domain.SlotDestination: {Value: "Paris", Confidence: 0.5, Source: domain.SourceFuzzy},
	})

	cls := c.Classify("flights please", domain.LanguageEnglish, sc)
	assert.Contains(t, cls.MissingContext, "confirm:destination")
	require.NotEmpty(t, cls.ClarifyingQuestions)
	assert.Contains(t, cls.ClarifyingQuestions[0], "Paris")
}

func TestClassify_KnownDestinationIsNotAskedAgain(t *testing.T) {
	c := newClassifier(t)

	sc := domain.NewSessionContext("s1", time.Now())
	sc.Data.Merge(map[domain.SlotName]domain.Slot{
		domain.SlotDestination: {Value: "Paris", Confidence: 0.8, Source: domain.SourceExact},
	})

	cls := c.Classify("hmm", domain.LanguageEnglish, sc)
	assert.NotContains(t, cls.ClarifyingQuestions, "Where would you like to go?")
	assert.NotContains(t, cls.MissingContext, "destination")
	assert.Equal(t, []string{"When are you thinking of traveling?", "Which city will you be leaving from?"}, cls.ClarifyingQuestions)
}

func TestClassify_KnownDateIsNotAskedAgain(t *testing.T) {
	c := newClassifier(t)

	sc := domain.NewSessionContext("s1", time.Now())
	sc.Data.Merge(map[domain.SlotName]domain.Slot{
		domain.SlotDepartureDate: {Value: "2026-10-17", Confidence: 0.95, Source: domain.SourceExact},
	})

	cls := c.Classify("hmm no idea", domain.LanguageEnglish, sc)
	assert.Equal(t, domain.ChaosLowInformation, cls.Chaos)
	assert.NotContains(t, cls.MissingContext, "departure_date")
	assert.Equal(t, []string{"Where would you like to go?", "Which city will you be leaving from?"}, cls.ClarifyingQuestions)
}

func TestClassify_RiskAndEmotion(t *testing.T) {
	c := newClassifier(t)

	high := c.Classify("my account was hacked and I will call my lawyer", domain.LanguageEnglish, nil)
	assert.Equal(t, domain.RiskHigh, high.RiskLevel)
	assert.ElementsMatch(t, []domain.RiskFlag{domain.RiskLegalThreat, domain.RiskSecurity}, high.RiskFlags)
	assert.Equal(t, domain.TeamCrisis, high.RecommendedAgent)

	internal := c.Classify("what is your commission on this?", domain.LanguageEnglish, nil)
	assert.Equal(t, domain.RiskMedium, internal.RiskLevel)

	frustrated := c.Classify("I am so frustrated with this", domain.LanguageEnglish, nil)
	assert.Equal(t, domain.EmotionFrustration, frustrated.Emotion.State)
	assert.Equal(t, domain.RiskMedium, frustrated.RiskLevel)

	calm := c.Classify("flights to Rome", domain.LanguageEnglish, nil)
	assert.Equal(t, domain.EmotionNeutral, calm.Emotion.State)
	assert.Equal(t, domain.RiskLow, calm.RiskLevel)
}

func TestClassify_Confidence(t *testing.T) {
	c := newClassifier(t)

	assert.Equal(t, domain.ConfidenceLow, c.Classify("hello", domain.LanguageEnglish, nil).Confidence)
	assert.Equal(t, domain.ConfidenceMedium, c.Classify("flights to Rome", domain.LanguageEnglish, nil).Confidence)
	assert.Equal(t, domain.ConfidenceHigh, c.Classify("I want flights to Rome in March", domain.LanguageEnglish, nil).Confidence)
	assert.Equal(t, domain.ConfidenceLow, c.Classify("not sure, maybe flights to Rome", domain.LanguageEnglish, nil).Confidence)
}

func TestProperty_QuestionCap(t *testing.T) {
	c := newClassifier(t)
	vocab := []string{
		"kids", "cheap", "somewhere", "maybe", "not sure", "tomorrow", "next month", "quero", "viajar",
		"flights", "hotel", "Paris", "from", "to", "hi", "cancel", "quiero", "lawyer", "ideas", "beach",
	}

	rapid.Check(t, func(t *rapid.T) {
		words := rapid.SliceOfN(rapid.SampledFrom(vocab), 0, 15).Draw(t, "words")
		lang := rapid.SampledFrom(domain.Languages).Draw(t, "lang")
		msg := ""
		for _, w := range words {
			msg += w + " "
		}
		cls := c.Classify(msg, lang, nil)
		if len(cls.ClarifyingQuestions) > domain.MaxClarifyingQuestions {
			t.Fatalf("too many questions: %v", cls.ClarifyingQuestions)
		}
		if !cls.Forbids(domain.ActionSkipStages) {
			t.Fatalf("skip_stages must always be forbidden")
		}
	})
}
