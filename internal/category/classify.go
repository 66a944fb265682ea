// Package category maps free-text catalogue categories onto the closed
// product category set, and holds the display labels for categories and
// storage locations.
package category

import (
	"strings"

	"github.com/dukerupert/larder/internal/model"
)

// Classify returns the category of the first keyword group with a stem
// contained in the lower-cased text. Blank or unmatched text is Other.
// Short stems match inside unrelated words; that is accepted.
func Classify(text string) model.Category {
	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" {
		return model.CategoryOther
	}

	for _, g := range groups {
		for _, stem := range g.stems {
			if strings.Contains(text, stem) {
				return g.category
			}
		}
	}

	return model.CategoryOther
}

type keywordGroup struct {
	category model.Category
	stems    []string
}

// Checked in order; the first hit wins.
var groups = []keywordGroup{
	{model.CategoryDairy, []string{
		"dairy", "milk", "cheese", "yogurt",
		"молоч", "молоко", "сыр", "йогурт", "кефир", "творог", "сметана",
	}},
	{model.CategoryMeat, []string{
		"meat", "chicken", "pork", "beef", "sausage",
		"мясо", "курица", "свинина", "говядина", "колбас", "сосиск",
	}},
	{model.CategoryFish, []string{
		"fish", "seafood", "salmon", "tuna",
		"рыба", "морепродукт", "креветк", "лосось",
	}},
	{model.CategoryVegetables, []string{
		"vegetable", "томат", "огурец", "картофель", "овощ", "капуста", "морковь", "salad",
	}},
	{model.CategoryFruits, []string{
		"fruit", "apple", "banana", "orange",
		"фрукт", "яблок", "банан", "апельсин", "груша", "ягод",
	}},
	{model.CategoryBakery, []string{
		"bread", "bakery", "pastry", "cake",
		"хлеб", "булк", "батон", "выпечк", "торт", "печенье",
	}},
	{model.CategoryBeverages, []string{
		"beverage", "drink", "juice", "water", "soda",
		"напиток", "сок", "вода", "газировк", "чай", "кофе",
	}},
	{model.CategoryFrozen, []string{
		"frozen", "ice cream", "замороженн", "мороженое", "пельмен",
	}},
	{model.CategoryCanned, []string{
		"canned", "preserved", "консерв", "тушенк", "маринованн",
	}},
}
