package models

// Spending categories
const (
	CategoryGroceries      = "GROCERIES"
	CategoryDining         = "DINING"
	CategoryTransportation = "TRANSPORTATION"
	CategoryEntertainment  = "ENTERTAINMENT"
	CategoryShopping       = "SHOPPING"
	CategoryBillsUtilities = "BILLS_UTILITIES"
	CategoryHealthcare     = "HEALTHCARE"
	CategoryEducation      = "EDUCATION"
	CategoryTravel         = "TRAVEL"
	CategoryATMCash        = "ATM_CASH"
	CategoryOther          = "OTHER"
)

// AllCategories returns all valid category constants
func AllCategories() []string {
	return []string{
		CategoryGroceries,
		CategoryDining,
		CategoryTransportation,
		CategoryEntertainment,
		CategoryShopping,
		CategoryBillsUtilities,
		CategoryHealthcare,
		CategoryEducation,
		CategoryTravel,
		CategoryATMCash,
		CategoryOther,
	}
}

// IsValidCategory checks if a category string is valid
func IsValidCategory(category string) bool {
	for _, validCategory := range AllCategories() {
		if category == validCategory {
			return true
		}
	}
	return false
}
