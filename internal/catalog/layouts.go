package catalog

import "github.com/JakeFAU/product-data-explorer/internal/extract"

var headingLinks = extract.LinkLayout{
	Selector:   "nav a, .category-link, .browse-link, a[href*='browse'], a[href*='category']",
	MinTextLen: 2,
	Exclude:    []string{"account", "basket"},
}

var categoryLinks = extract.LinkLayout{
	Selector: ".category-list a, .subcategory a, .genre-list a",
}

var productListing = extract.ListingLayout{
	Containers: []string{".product-item, .book-item, .search-result"},
	Title:      texts(".title, .book-title, h3, h4"),
	Author:     texts(".author, .book-author"),
	Price:      texts(".price, .book-price"),
	Image:      []extract.Strategy{extract.Attr("img", "src")},
	Link:       []extract.Strategy{extract.Attr("a", "href")},
}

var searchListing = extract.ListingLayout{
	Containers: []string{
		".product-tile",
		".book-tile",
		".search-item",
		"[data-testid='product-tile']",
		".product-card",
		".book-card",
		".item",
		".result",
		".product",
		".book",
		"article",
		".listing",
	},
	Title:  texts(".product-title", ".book-title", "h3", "h4", ".title", "h2", "h1"),
	Author: texts(".author", ".book-author", ".product-author", ".by-author"),
	Price:  texts(".price", ".product-price", ".cost", ".amount"),
	Image:  []extract.Strategy{extract.Attr("img", "src"), extract.Attr("img", "data-src")},
	Link:   []extract.Strategy{extract.Attr("a", "href")},
}

// Product detail field names.
const (
	fieldTitle           = "title"
	fieldAuthor          = "author"
	fieldPrice           = "price"
	fieldDescription     = "description"
	fieldCondition       = "condition"
	fieldISBN            = "isbn"
	fieldPublisher       = "publisher"
	fieldPublicationDate = "publicationDate"
	fieldImage           = "image"
	fieldAvailability    = "availability"
)

var productFields = []extract.Field{
	{Name: fieldTitle, Strategies: texts(".product-title, .book-title, h1"), Default: "Product Title"},
	{Name: fieldAuthor, Strategies: texts(".author, .book-author"), Default: extract.DefaultAuthor},
	{Name: fieldPrice, Strategies: texts(".price, .book-price"), Default: extract.DefaultPrice},
	{Name: fieldDescription, Strategies: texts(".description, .book-description, .product-description"), Default: "No description available"},
	{Name: fieldCondition, Strategies: texts(".condition"), Default: "Good"},
	{Name: fieldISBN, Strategies: texts(".isbn"), Default: "ISBN not available"},
	{Name: fieldPublisher, Strategies: texts(".publisher"), Default: "Publisher not available"},
	{Name: fieldPublicationDate, Strategies: texts(".publication-date, .pub-date"), Default: "Date not available"},
	{Name: fieldImage, Strategies: []extract.Strategy{extract.Attr(".product-image img, .book-image img", "src")}},
	{Name: fieldAvailability, Strategies: texts(".availability, .stock"), Default: "In Stock"},
}

func texts(selectors ...string) []extract.Strategy {
	out := make([]extract.Strategy, len(selectors))
	for i, s := range selectors {
		out[i] = extract.Text(s)
	}
	return out
}
