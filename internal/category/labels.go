package category

import (
	"strings"

	"github.com/dukerupert/larder/internal/model"
)

// Lang selects a label language.
type Lang string

const (
	LangEN Lang = "en"
	LangRU Lang = "ru"
	LangZH Lang = "zh"
)

// ParseLang accepts a language tag ("ru", "zh-CN") or a language's own name
// ("Русский", "中文"). Anything else is English.
func ParseLang(s string) Lang {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, lang := range []Lang{LangRU, LangZH} {
		tag := string(lang)
		if s == tag || strings.HasPrefix(s, tag+"-") || strings.HasPrefix(s, tag+"_") {
			return lang
		}
	}
	switch s {
	case "русский":
		return LangRU
	case "中文":
		return LangZH
	}
	return LangEN
}

// labels holds a name in English, Russian and Chinese, in that order.
type labels [3]string

var categoryLabels = map[model.Category]labels{
	model.CategoryDairy:      {"Dairy", "Молочные продукты", "乳制品"},
	model.CategoryMeat:       {"Meat & Poultry", "Мясо и птица", "肉类和禽类"},
	model.CategoryFish:       {"Fish & Seafood", "Рыба и морепродукты", "鱼类和海鲜"},
	model.CategoryVegetables: {"Vegetables", "Овощи", "蔬菜"},
	model.CategoryFruits:     {"Fruits", "Фрукты", "水果"},
	model.CategoryBakery:     {"Bakery", "Хлебобулочные изделия", "烘焙食品"},
	model.CategoryFrozen:     {"Frozen", "Замороженные продукты", "冷冻食品"},
	model.CategoryCanned:     {"Canned", "Консервы", "罐头食品"},
	model.CategoryBeverages:  {"Beverages", "Напитки", "饮料"},
	model.CategoryOther:      {"Other", "Другое", "其他"},
}

var locationLabels = map[model.StorageLocation]labels{
	model.LocationFridge:  {"Fridge", "Холодильник", "冰箱"},
	model.LocationFreezer: {"Freezer", "Морозильник", "冷冻室"},
	model.LocationPantry:  {"Pantry", "Кладовая", "储藏室"},
	model.LocationCounter: {"Counter", "На столе", "台面"},
}

// Label returns the display name of c. Unknown categories get the Other label.
func Label(c model.Category, lang Lang) string {
	l, ok := categoryLabels[c]
	if !ok {
		l = categoryLabels[model.CategoryOther]
	}
	return pick(l, lang)
}

// LocationLabel returns the display name of a storage location, or the raw
// value when it is unknown.
func LocationLabel(loc model.StorageLocation, lang Lang) string {
	l, ok := locationLabels[loc]
	if !ok {
		return string(loc)
	}
	return pick(l, lang)
}

func pick(l labels, lang Lang) string {
	switch lang {
	case LangRU:
		return l[1]
	case LangZH:
		return l[2]
	}
	return l[0]
}

// Entry pairs an enum value with its label.
type Entry struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// CategoryEntries lists every category with its label, in display order.
func CategoryEntries(lang Lang) []Entry {
	entries := make([]Entry, 0, len(model.Categories))
	for _, c := range model.Categories {
		entries = append(entries, Entry{Value: string(c), Label: Label(c, lang)})
	}
	return entries
}

func LocationEntries(lang Lang) []Entry {
	entries := make([]Entry, 0, len(model.StorageLocations))
	for _, l := range model.StorageLocations {
		entries = append(entries, Entry{Value: string(l), Label: LocationLabel(l, lang)})
	}
	return entries
}
