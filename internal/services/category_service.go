package services

import (
	"strings"

	"spending-guard/internal/models"
)

const fuzzyMatchThreshold = 0.7

type categoryService struct {
	merchantPatterns map[string]merchantPattern
	keywordPatterns  []keywordPattern
}

type merchantPattern struct {
	category   string
	confidence float64
}

type keywordPattern struct {
	keywords   []string
	category   string
	confidence float64
}

// NewCategoryService creates the merchant-name categorizer used when a transaction
// arrives without a category.
func NewCategoryService() CategorizerInterface {
	return &categoryService{
		merchantPatterns: initMerchantPatterns(),
		keywordPatterns:  initKeywordPatterns(),
	}
}

// CategorizeMerchant tries known merchant names, then fuzzy matches, then generic keywords.
func (s *categoryService) CategorizeMerchant(merchantName string) (string, float64) {
	normalized := normalizeForMatching(merchantName)
	if normalized == "" {
		return models.CategoryOther, 0.0
	}

	for name, mapping := range s.merchantPatterns {
		if strings.Contains(normalized, normalizeForMatching(name)) {
			return mapping.category, mapping.confidence
		}
	}

	if match, score := s.FuzzyMatchMerchant(merchantName); match != "" {
		mapping := s.merchantPatterns[match]
		return mapping.category, score * mapping.confidence
	}

	lower := strings.ToLower(merchantName)
	for _, pattern := range s.keywordPatterns {
		for _, keyword := range pattern.keywords {
			if strings.Contains(lower, keyword) {
				return pattern.category, pattern.confidence
			}
		}
	}

	return models.CategoryOther, 0.0
}

// FuzzyMatchMerchant returns the closest known merchant by Levenshtein similarity,
// or "" when nothing scores above the threshold.
func (s *categoryService) FuzzyMatchMerchant(input string) (string, float64) {
	input = strings.ToLower(strings.TrimSpace(input))
	if input == "" {
		return "", 0.0
	}

	var bestMatch string
	var bestScore float64
	for merchant := range s.merchantPatterns {
		score := calculateSimilarity(input, strings.ToLower(merchant))
		if score > fuzzyMatchThreshold && (score > bestScore || (score == bestScore && merchant < bestMatch)) {
			bestScore = score
			bestMatch = merchant
		}
	}

	return bestMatch, bestScore
}

func initMerchantPatterns() map[string]merchantPattern {
	return map[string]merchantPattern{
		"Walmart":     {category: models.CategoryGroceries, confidence: 0.95},
		"Kroger":      {category: models.CategoryGroceries, confidence: 0.95},
		"Safeway":     {category: models.CategoryGroceries, confidence: 0.95},
		"Whole Foods": {category: models.CategoryGroceries, confidence: 0.95},
		"Trader Joe":  {category: models.CategoryGroceries, confidence: 0.95},
		"Costco":      {category: models.CategoryGroceries, confidence: 0.95},
		"Aldi":        {category: models.CategoryGroceries, confidence: 0.95},
		"Target":      {category: models.CategoryShopping, confidence: 0.90},

		"Starbucks": {category: models.CategoryDining, confidence: 0.95},
		"McDonald":  {category: models.CategoryDining, confidence: 0.95},
		"Chipotle":  {category: models.CategoryDining, confidence: 0.95},
		"Subway":    {category: models.CategoryDining, confidence: 0.95},
		"Dunkin":    {category: models.CategoryDining, confidence: 0.95},
		"Domino":    {category: models.CategoryDining, confidence: 0.95},

		"Uber":    {category: models.CategoryTransportation, confidence: 0.95},
		"Lyft":    {category: models.CategoryTransportation, confidence: 0.95},
		"Shell":   {category: models.CategoryTransportation, confidence: 0.95},
		"Chevron": {category: models.CategoryTransportation, confidence: 0.95},
		"Exxon":   {category: models.CategoryTransportation, confidence: 0.95},

		"Netflix": {category: models.CategoryEntertainment, confidence: 0.95},
		"Spotify": {category: models.CategoryEntertainment, confidence: 0.95},
		"AMC":     {category: models.CategoryEntertainment, confidence: 0.95},
		"Steam":   {category: models.CategoryEntertainment, confidence: 0.90},

		"Amazon":     {category: models.CategoryShopping, confidence: 0.95},
		"Best Buy":   {category: models.CategoryShopping, confidence: 0.95},
		"Apple":      {category: models.CategoryShopping, confidence: 0.90},
		"Home Depot": {category: models.CategoryShopping, confidence: 0.95},
		"Ikea":       {category: models.CategoryShopping, confidence: 0.95},

		"Verizon": {category: models.CategoryBillsUtilities, confidence: 0.95},
		"Comcast": {category: models.CategoryBillsUtilities, confidence: 0.95},

		"CVS":       {category: models.CategoryHealthcare, confidence: 0.95},
		"Walgreens": {category: models.CategoryHealthcare, confidence: 0.95},

		"Delta":    {category: models.CategoryTravel, confidence: 0.95},
		"Marriott": {category: models.CategoryTravel, confidence: 0.95},
		"Hilton":   {category: models.CategoryTravel, confidence: 0.95},
		"Airbnb":   {category: models.CategoryTravel, confidence: 0.95},
	}
}

func initKeywordPatterns() []keywordPattern {
	return []keywordPattern{
		{keywords: []string{"atm", "cash withdrawal"}, category: models.CategoryATMCash, confidence: 0.85},
		{keywords: []string{"cafe", "coffee", "restaurant", "pizza", "grill", "bar", "bistro", "diner"}, category: models.CategoryDining, confidence: 0.75},
		{keywords: []string{"market", "grocery", "supermarket", "bakery"}, category: models.CategoryGroceries, confidence: 0.70},
		{keywords: []string{"pharmacy", "clinic", "dental", "hospital"}, category: models.CategoryHealthcare, confidence: 0.75},
		{keywords: []string{"taxi", "parking", "fuel", "gas station", "transit"}, category: models.CategoryTransportation, confidence: 0.70},
		{keywords: []string{"cinema", "theater", "casino", "arcade"}, category: models.CategoryEntertainment, confidence: 0.70},
		{keywords: []string{"hotel", "airline", "motel"}, category: models.CategoryTravel, confidence: 0.70},
		{keywords: []string{"school", "university", "tuition", "bookstore"}, category: models.CategoryEducation, confidence: 0.70},
		{keywords: []string{"electric", "water", "internet", "mobile"}, category: models.CategoryBillsUtilities, confidence: 0.65},
	}
}

// calculateSimilarity is 1 - levenshtein/maxLen.
func calculateSimilarity(s1, s2 string) float64 {
	if s1 == s2 {
		return 1.0
	}
	if len(s1) == 0 || len(s2) == 0 {
		return 0.0
	}

	maxLen := max(len(s1), len(s2))
	return 1.0 - float64(levenshteinDistance(s1, s2))/float64(maxLen)
}

// levenshteinDistance uses two rolling rows instead of a full matrix.
func levenshteinDistance(s1, s2 string) int {
	prev := make([]int, len(s2)+1)
	curr := make([]int, len(s2)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(s1); i++ {
		curr[0] = i
		for j := 1; j <= len(s2); j++ {
			cost := 1
			if s1[i-1] == s2[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}

	return prev[len(s2)]
}

// normalizeForMatching strips case and punctuation for consistent matching
func normalizeForMatching(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer("-", "", "_", "", " ", "", "'", "", ".", "").Replace(s)
}
