package model

// Category is an entry of the fixed category catalog.
type Category struct {
	ID     string `json:"id"`
	NameAr string `json:"nameAr"`
	NameEn string `json:"nameEn,omitempty"`
	Color  string `json:"color,omitempty"`
}

// Categories is the catalog products and missing items refer to by ID.
var Categories = []Category{
	{ID: "1", NameAr: "ضواغط التبريد", NameEn: "Compressors", Color: "blue"},
	{ID: "2", NameAr: "غازات التبريد", NameEn: "Refrigerants", Color: "cyan"},
	{ID: "3", NameAr: "أدوات السباكة", NameEn: "Plumbing Tools", Color: "green"},
	{ID: "4", NameAr: "أدوات كهربائية", NameEn: "Electrical Tools", Color: "yellow"},
	{ID: "5", NameAr: "مواسير ووصلات", NameEn: "Pipes & Fittings", Color: "orange"},
	{ID: "6", NameAr: "أجهزة قياس", NameEn: "Measuring Instruments", Color: "purple"},
	{ID: "7", NameAr: "قطع غيار تبريد", NameEn: "HVAC Parts", Color: "indigo"},
	{ID: "8", NameAr: "عدد يدوية", NameEn: "Hand Tools", Color: "gray"},
	{ID: "9", NameAr: "مواد عازلة", NameEn: "Insulation Materials", Color: "teal"},
	{ID: "10", NameAr: "كابلات ومفاتيح", NameEn: "Cables & Switches", Color: "red"},
}

// LookupCategory returns the catalog entry with the given ID.
func LookupCategory(id string) (Category, bool) {
	for _, c := range Categories {
		if c.ID == id {
			return c, true
		}
	}
	return Category{}, false
}
