package ticket

import "sentinai/pkg/tools"

// Sample is one labeled training ticket.
type Sample struct {
	Text     string `json:"text"`
	Category string `json:"category"`
}

// DefaultDataset returns the built-in training set: six tickets per category.
func DefaultDataset() []Sample {
	return []Sample{
		{"I was charged twice for my subscription", tools.CategoryBilling},
		{"Why is my bill higher this month", tools.CategoryBilling},
		{"I need a refund for the overcharge", tools.CategoryBilling},
		{"Can you explain the charges on my invoice", tools.CategoryBilling},
		{"Payment failed but money was deducted", tools.CategoryBilling},
		{"I want to cancel and get my money back", tools.CategoryBilling},
		{"The application keeps crashing", tools.CategoryTechnical},
		{"I cannot connect to the server", tools.CategoryTechnical},
		{"Error message when trying to upload files", tools.CategoryTechnical},
		{"The system is running very slow", tools.CategoryTechnical},
		{"Feature X is not working as expected", tools.CategoryTechnical},
		{"How do I configure the API settings", tools.CategoryTechnical},
		{"I forgot my password and cannot reset it", tools.CategoryAccount},
		{"How do I change my email address", tools.CategoryAccount},
		{"I want to delete my account", tools.CategoryAccount},
		{"Cannot update my profile information", tools.CategoryAccount},
		{"How do I enable two-factor authentication", tools.CategoryAccount},
		{"I need to change my subscription plan", tools.CategoryAccount},
	}
}
