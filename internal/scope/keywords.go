package scope

import "github.com/Veraticus/local-guide/internal/model"

// DefaultKeywords maps each topic to the words and phrases that signal it.
// Question words ("what", "where") are not keywords.
func DefaultKeywords() map[model.Topic][]string {
	return map[model.Topic][]string{
		model.TopicFood: {
			"food", "eat", "eating", "restaurant", "meal", "dish", "cuisine", "biryani",
			"idli", "dosa", "parotta", "curry", "sweet", "snack", "breakfast", "lunch",
			"dinner", "drink", "tea", "coffee", "jigarthanda", "halwa", "thalappakatti",
			"hotel", "mess", "cooking", "recipe", "taste", "spicy", "vegetarian", "street food",
		},
		model.TopicTransport: {
			"transport", "bus", "auto", "rickshaw", "taxi", "cab", "train", "railway",
			"station", "route", "travel", "journey", "fare", "ticket", "road",
			"highway", "airport", "metro", "share auto", "vehicle", "driving", "walk",
			"get to", "reach", "distance",
		},
		model.TopicLocalLanguage: {
			"slang", "language", "phrase", "word", "speak", "say", "meaning", "tamil",
			"dialect", "accent", "expression", "greeting", "people say", "how to say",
			"what does", "mean", "pronunciation", "pronounce", "conversation", "translate",
		},
		model.TopicSafety: {
			"safety", "safe", "danger", "dangerous", "crime", "police", "emergency",
			"secure", "avoid", "careful", "precaution", "risk", "trouble", "alone",
			"tourist", "scam", "theft", "hospital", "ambulance", "fire",
		},
		model.TopicLifestyle: {
			"lifestyle", "culture", "custom", "tradition", "festival", "celebration",
			"shopping", "market", "temple", "worship", "dress", "clothing",
			"weather", "climate", "season", "people", "behavior", "etiquette",
			"social", "family", "marriage", "business", "education", "population",
			"demographics", "entertainment", "music", "dance", "art", "history",
			"visit", "experience", "activity", "things to do", "recommend", "suggest",
			"nightlife", "famous", "known for",
		},
	}
}

// generalPhrases mark an overview question about a registered city.
var generalPhrases = []string{
	"tell me about", "what about", "about", "describe", "information",
	"know about", "learn about", "explain", "overview", "guide",
}

// DefaultExcludedPlaces are well-known places outside the covered cities.
func DefaultExcludedPlaces() []string {
	return []string{
		"new york", "london", "paris", "tokyo", "dubai", "singapore",
		"mumbai", "delhi", "bangalore", "bengaluru", "hyderabad", "kolkata",
	}
}
