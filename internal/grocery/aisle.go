// Package grocery sorts grocery names into store aisles.
package grocery

import (
	"sort"
	"strings"
)

type Aisle string

const (
	Produce      Aisle = "Produce"
	Dairy        Aisle = "Dairy"
	Meat         Aisle = "Meat & Seafood"
	Bakery       Aisle = "Bakery"
	Pantry       Aisle = "Pantry"
	Frozen       Aisle = "Frozen"
	Beverages    Aisle = "Beverages"
	Snacks       Aisle = "Snacks"
	Household    Aisle = "Household"
	PersonalCare Aisle = "Personal Care"
	Other        Aisle = "Other"
)

// Aisles in walking order.
var Aisles = []Aisle{Produce, Bakery, Meat, Dairy, Pantry, Snacks, Beverages, Frozen, Household, PersonalCare, Other}

var keywordsByAisle = map[Aisle][]string{
	Produce: {
		"apple", "banana", "orange", "lemon", "lime", "avocado", "tomato", "potato",
		"onion", "garlic", "lettuce", "spinach", "kale", "broccoli", "carrot", "celery",
		"cucumber", "pepper", "mushroom", "corn", "zucchini", "cabbage", "ginger",
		"grape", "berry", "berries", "strawberry", "strawberries", "blueberry", "blueberries",
		"pear", "peach", "melon", "watermelon", "herb", "basil", "parsley", "cilantro",
	},
	Dairy: {
		"milk", "cheese", "butter", "yogurt", "yoghurt", "cream", "sour cream",
		"cream cheese", "egg", "cottage cheese", "mozzarella", "cheddar", "parmesan",
	},
	Meat: {
		"chicken", "beef", "pork", "ham", "bacon", "sausage", "turkey", "steak",
		"mince", "ground beef", "salmon", "tuna steak", "shrimp", "prawn", "fish", "cod",
	},
	Bakery: {
		"bread", "bagel", "bun", "roll", "croissant", "muffin", "tortilla", "pita",
		"baguette", "cake", "sourdough",
	},
	Pantry: {
		"rice", "pasta", "spaghetti", "noodle", "flour", "sugar", "salt", "oil",
		"olive oil", "vinegar", "bean", "lentil", "canned", "soup", "sauce",
		"tomato sauce", "peanut butter", "jam", "honey", "cereal", "oat", "spice",
		"stock", "broth", "tuna", "ketchup", "mustard", "mayo", "mayonnaise",
	},
	Frozen: {
		"ice cream", "frozen", "frozen pizza", "ice", "popsicle", "frozen peas",
	},
	Beverages: {
		"coffee", "tea", "juice", "soda", "water", "sparkling water", "beer", "wine",
		"lemonade", "kombucha",
	},
	Snacks: {
		"chip", "crisp", "cracker", "cookie", "biscuit", "popcorn", "pretzel",
		"chocolate", "candy", "nut", "granola bar",
	},
	Household: {
		"paper towel", "toilet paper", "tissue", "detergent", "dish soap", "sponge",
		"trash bag", "bin bag", "foil", "cling film", "battery", "batteries", "bleach",
	},
	PersonalCare: {
		"shampoo", "conditioner", "soap", "toothpaste", "toothbrush", "deodorant",
		"razor", "lotion", "sunscreen", "floss",
	},
}

type keyword struct {
	words string
	aisle Aisle
}

// keywords is ordered longest first so the most specific keyword wins.
var keywords = func() []keyword {
	var out []keyword
	for aisle, words := range keywordsByAisle {
		for _, w := range words {
			out = append(out, keyword{words: w, aisle: aisle})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if len(out[i].words) != len(out[j].words) {
			return len(out[i].words) > len(out[j].words)
		}
		return out[i].words < out[j].words
	})
	return out
}()

// AisleOf returns the aisle of a grocery name. Keywords match whole words,
// allowing a plural "s" or "es"; names matching nothing are Other.
func AisleOf(name string) Aisle {
	fields := strings.Fields(strings.ToLower(name))
	if len(fields) == 0 {
		return Other
	}
	padded := " " + strings.Join(fields, " ") + " "
	for _, k := range keywords {
		for _, suffix := range []string{" ", "s ", "es "} {
			if strings.Contains(padded, " "+k.words+suffix) {
				return k.aisle
			}
		}
	}
	return Other
}

// Rank orders aisles by Aisles; unknown aisles sort last.
func Rank(a Aisle) int {
	for i, known := range Aisles {
		if known == a {
			return i
		}
	}
	return len(Aisles)
}
