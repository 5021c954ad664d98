package models

// Category identifies one of the fixed grocery category tags.
type Category string

const (
	CategoryMeatPoultry       Category = "meat-poultry"
	CategorySeafood           Category = "seafood"
	CategoryFruits            Category = "fruits"
	CategoryVegetables        Category = "vegetables"
	CategoryDairyEggs         Category = "dairy-eggs"
	CategoryDrinksBeverages   Category = "drinks-beverages"
	CategoryPreparedLeftovers Category = "prepared-leftovers"
	CategoryCondimentsSauces  Category = "condiments-sauces"
)

// CategoryInfo carries display metadata for a category.
type CategoryInfo struct {
	ID    Category
	Label string
	Emoji string
}

// Categories lists every known category in display order.
var Categories = []CategoryInfo{
	{ID: CategoryMeatPoultry, Label: "Meat & Poultry", Emoji: "🍗"},
	{ID: CategorySeafood, Label: "Seafood", Emoji: "🐟"},
	{ID: CategoryFruits, Label: "Fruits", Emoji: "🍎"},
	{ID: CategoryVegetables, Label: "Vegetables", Emoji: "🥦"},
	{ID: CategoryDairyEggs, Label: "Dairy & Eggs", Emoji: "🥛"},
	{ID: CategoryDrinksBeverages, Label: "Drinks & Beverages", Emoji: "🥤"},
	{ID: CategoryPreparedLeftovers, Label: "Prepared / Leftovers", Emoji: "🍱"},
	{ID: CategoryCondimentsSauces, Label: "Condiments & Sauces", Emoji: "🧴"},
}

// CategoryByID returns the display metadata for id, or nil if unknown.
func CategoryByID(id Category) *CategoryInfo {
	for i := range Categories {
		if Categories[i].ID == id {
			return &Categories[i]
		}
	}
	return nil
}

// IsValid reports whether c is one of the known category tags.
func (c Category) IsValid() bool {
	return CategoryByID(c) != nil
}
