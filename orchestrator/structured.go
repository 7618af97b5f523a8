package orchestrator

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/vijay-svsk/call-summarizer/report"
	"github.com/vijay-svsk/call-summarizer/signal"
)

// Structured block keys produced by the narrative generator.
const (
	keyTheme        = "theme"
	keySpeakers     = "number_of_speakers"
	keyKeyTopics    = "key_topics"
	keyMood         = "mood_analysis"
	keySentiment    = "sentiment_analysis"
	keyPersuasion   = "persuasion_analysis"
	keyInterest     = "rate_of_interest"
	keyNoise        = "background_noise"
	keyEscalation   = "issue_escalation"
	keyEngagement   = "engagement_level"
	keyEffective    = "response_effectiveness"
	keyInsights     = "actionable_insights"
	keyConversion   = "sales_conversion_probability"
	keyCompetitors  = "competitive_mentions"
	keyPainPoints   = "pain_points"
	keyDuration     = "call_duration"
	keyResolution   = "resolution_time"
	keyFollowUp     = "follow_up_required"
	keyFollowUpText = "follow_up_summary"
	keyChurn        = "churn_prediction"
)

// applyStructured copies the generator's structured findings into in.
// Percentages are clipped to [0,100] and stored as ratios; percentage
// breakdowns are re-normalized to sum to 100 rather than trusted.
func applyStructured(in *report.Input, m map[string]any) {
	if m == nil {
		return
	}
	in.Structured = m

	if v, ok := asString(m[keyTheme]); ok {
		in.Details.Theme = report.Some(v)
	}
	if v, ok := asFloat(m[keySpeakers]); ok {
		in.Details.SpeakerCount = report.Some(int(v))
	}
	if v, ok := asString(m[keyFollowUpText]); ok {
		in.Details.FollowUpSummary = report.Some(v)
	}
	if v, ok := asText(m[keyDuration]); ok {
		in.Details.CallDuration = report.Some(v)
	}
	if v, ok := asText(m[keyResolution]); ok {
		in.Details.ResolutionTime = report.Some(v)
	}

	setPercent := func(dst *report.Optional[float64], key string) {
		if v, ok := asScore(m[key]); ok {
			*dst = report.Some(signal.Round2(v))
		}
	}
	setPercent(&in.Scores.Engagement, keyEngagement)
	setPercent(&in.Scores.ResponseEffectiveness, keyEffective)
	setPercent(&in.Scores.SalesConversion, keyConversion)
	setPercent(&in.Scores.ChurnRisk, keyChurn)
	if !in.Scores.BackgroundNoise.Computed() {
		setPercent(&in.Scores.BackgroundNoise, keyNoise)
	}

	setList := func(dst *report.Optional[[]string], key string) {
		if v, ok := asStrings(m[key]); ok {
			*dst = report.Some(v)
		}
	}
	setList(&in.Lists.KeyTopics, keyKeyTopics)
	setList(&in.Lists.Insights, keyInsights)
	setList(&in.Lists.PainPoints, keyPainPoints)
	setList(&in.Lists.CompetitiveMentions, keyCompetitors)

	if v, ok := asBool(m[keyEscalation]); ok {
		in.Flags.Escalation = report.Some(v)
	}
	if v, ok := asBool(m[keyFollowUp]); ok {
		in.Flags.FollowUpRequired = report.Some(v)
	}

	// Per-role breakdowns become "<prefix>.<role>" groups.
	for key, prefix := range map[string]string{keyMood: "mood", keySentiment: "sentiment"} {
		roles, _ := m[key].(map[string]any)
		for role, raw := range roles {
			addGroup(in, prefix+"."+role, raw)
		}
	}
	addGroup(in, "persuasion", m[keyPersuasion])

	if roles, ok := m[keyInterest].(map[string]any); ok {
		for _, role := range sortedKeys(roles) {
			if v, ok := asFloat(roles[role]); ok {
				in.RawSignals = append(in.RawSignals, signal.Percent("interest."+role, v))
			}
		}
	}
}

func addGroup(in *report.Input, name string, raw any) {
	members, ok := raw.(map[string]any)
	if !ok || len(members) == 0 {
		return
	}
	vals := make(map[string]float64, len(members))
	for k, v := range members {
		f, ok := asFloat(v)
		if !ok {
			continue
		}
		vals[k] = signal.Percent(name+"."+k, f).Scaled()
	}
	if len(vals) == 0 {
		return
	}
	g, err := signal.NormalizeGroup(name, vals, signal.DefaultTarget)
	if err != nil {
		return
	}
	if in.Groups == nil {
		in.Groups = map[string]signal.Group{}
	}
	in.Groups[name] = g
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// asFloat accepts JSON numbers and numeric strings such as "85" or "85%".
func asFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(t), "%"), 64)
		return f, err == nil
	}
	return 0, false
}

// asScore reads a score given either as a fraction in [0,1] or as a
// percentage, and returns it on [0,1]. Values above 1, below 0 and strings
// with a "%" suffix are percentages.
func asScore(v any) (float64, bool) {
	f, ok := asFloat(v)
	if !ok {
		return 0, false
	}
	if str, isStr := v.(string); isStr && strings.HasSuffix(strings.TrimSpace(str), "%") {
		return signal.Percent("", f).Scaled(), true
	}
	if f >= 0 && f <= 1 {
		return f, true
	}
	return signal.Percent("", f).Scaled(), true
}

func asString(v any) (string, bool) {
	s, ok := v.(string)
	s = strings.TrimSpace(s)
	return s, ok && s != ""
}

// asText renders a scalar as text; numbers keep their shortest form.
func asText(v any) (string, bool) {
	switch t := v.(type) {
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case string:
		return asString(t)
	}
	return "", false
}

func asBool(v any) (bool, bool) {
	switch t := v.(type) {
	case bool:
		return t, true
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true", "yes":
			return true, true
		case "false", "no":
			return false, true
		}
	}
	return false, false
}

func asStrings(v any) ([]string, bool) {
	items, ok := v.([]any)
	if !ok {
		return nil, false
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		switch t := it.(type) {
		case string:
			if s := strings.TrimSpace(t); s != "" {
				out = append(out, s)
			}
		case nil:
		default:
			out = append(out, fmt.Sprint(t))
		}
	}
	return out, true
}
