package catalog

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/JakeFAU/product-data-explorer/internal/scraper"
)

const (
	sampleProductCount = 12
	maxFallbackResults = 8
	defaultTopic       = "fiction"
	productPlaceholder = "/placeholder.svg?height=400&width=300&query=book cover"
)

type book struct {
	title  string
	author string
}

type topic struct {
	name  string
	books []book
}

// topics is ordered; the first matching topic wins.
var topics = []topic{
	{name: "fiction", books: []book{
		{"The Great Gatsby", "F. Scott Fitzgerald"},
		{"To Kill a Mockingbird", "Harper Lee"},
		{"1984", "George Orwell"},
		{"Pride and Prejudice", "Jane Austen"},
		{"The Catcher in the Rye", "J.D. Salinger"},
	}},
	{name: "mystery", books: []book{
		{"The Girl with the Dragon Tattoo", "Stieg Larsson"},
		{"Gone Girl", "Gillian Flynn"},
		{"The Da Vinci Code", "Dan Brown"},
		{"Sherlock Holmes", "Arthur Conan Doyle"},
		{"Agatha Christie Collection", "Agatha Christie"},
	}},
	{name: "romance", books: []book{
		{"Pride and Prejudice", "Jane Austen"},
		{"The Notebook", "Nicholas Sparks"},
		{"Me Before You", "Jojo Moyes"},
		{"The Time Traveler's Wife", "Audrey Niffenegger"},
		{"Outlander", "Diana Gabaldon"},
	}},
	{name: "science", books: []book{
		{"A Brief History of Time", "Stephen Hawking"},
		{"The Selfish Gene", "Richard Dawkins"},
		{"Cosmos", "Carl Sagan"},
		{"The Origin of Species", "Charles Darwin"},
		{"Silent Spring", "Rachel Carson"},
	}},
	{name: "history", books: []book{
		{"Sapiens", "Yuval Noah Harari"},
		{"The Guns of August", "Barbara Tuchman"},
		{"A People's History", "Howard Zinn"},
		{"The Diary of Anne Frank", "Anne Frank"},
		{"Band of Brothers", "Stephen Ambrose"},
	}},
	{name: "biography", books: []book{
		{"Steve Jobs", "Walter Isaacson"},
		{"Long Walk to Freedom", "Nelson Mandela"},
		{"The Autobiography of Malcolm X", "Alex Haley"},
		{"Becoming", "Michelle Obama"},
		{"Einstein: His Life", "Walter Isaacson"},
	}},
	{name: "children", books: []book{
		{"Harry Potter", "J.K. Rowling"},
		{"The Cat in the Hat", "Dr. Seuss"},
		{"Where the Wild Things Are", "Maurice Sendak"},
		{"Charlotte's Web", "E.B. White"},
		{"The Lion King", "Disney"},
	}},
	{name: "art", books: []book{
		{"The Story of Art", "E.H. Gombrich"},
		{"Ways of Seeing", "John Berger"},
		{"The Art Book", "Phaidon Editors"},
		{"Leonardo da Vinci", "Walter Isaacson"},
		{"Frida Kahlo Biography", "Hayden Herrera"},
	}},
}

// matchTopic picks the first topic contained in the query or containing it.
// Matching is best-effort; a query naming several topics resolves by table order.
func matchTopic(query string) topic {
	q := strings.ToLower(strings.TrimSpace(query))
	for _, t := range topics {
		if strings.Contains(q, t.name) || strings.Contains(t.name, q) {
			return t
		}
	}
	for _, t := range topics {
		if t.name == defaultTopic {
			return t
		}
	}
	return topics[0]
}

var knownHeadings = []struct {
	name string
	path string
}{
	{"Fiction", "fiction"},
	{"Non-Fiction", "non-fiction"},
	{"Children's Books", "childrens"},
	{"Academic & Education", "academic"},
	{"Biography", "biography"},
	{"History", "history"},
	{"Science & Nature", "science"},
	{"Art & Design", "art"},
}

var genericCategories = []string{
	"Fiction",
	"Non-Fiction",
	"Children's Books",
	"Academic",
	"Biography",
	"History",
	"Science",
	"Art & Design",
}

func (s *Service) fallbackHeadings() []scraper.Heading {
	out := make([]scraper.Heading, 0, len(knownHeadings))
	for _, h := range knownHeadings {
		out = append(out, scraper.Heading{
			ID:   scraper.GenerateID(h.name),
			Name: h.name,
			URL:  s.origin + "/en-gb/category/" + h.path,
		})
	}
	return out
}

func (s *Service) fallbackCategories(heading string) []scraper.Category {
	out := make([]scraper.Category, 0, len(genericCategories))
	for _, name := range genericCategories {
		out = append(out, scraper.Category{
			ID:      scraper.GenerateID(name),
			Name:    name,
			URL:     s.origin + "/search?q=" + url.QueryEscape(name),
			Heading: heading,
		})
	}
	return out
}

func (s *Service) sampleProducts(category string) []scraper.Product {
	out := make([]scraper.Product, 0, sampleProductCount)
	for i := 1; i <= sampleProductCount; i++ {
		out = append(out, scraper.Product{
			ID:       fmt.Sprintf("sample-%s-%d", category, i),
			Title:    fmt.Sprintf("Sample Book %d - %s", i, category),
			Author:   fmt.Sprintf("Author %d", i),
			Price:    s.price(5, 20),
			Image:    "/placeholder.svg?height=200&width=150&query=book cover " + category,
			Link:     "#",
			Category: category,
		})
	}
	return out
}

func (s *Service) sampleDetail(id string) scraper.ProductDetail {
	return scraper.ProductDetail{
		ID:              id,
		Title:           "Sample Book - " + id,
		Author:          "Sample Author",
		Price:           s.price(5, 20),
		Description:     "This is a sample book description. In a real implementation, this would be scraped from the actual product page on World of Books.",
		Condition:       "Very Good",
		ISBN:            "978-0123456789",
		Publisher:       "Sample Publisher",
		PublicationDate: "2023",
		Image:           productPlaceholder + " " + id,
		Availability:    "In Stock",
	}
}

func (s *Service) fallbackSearch(query string) []scraper.SearchResult {
	t := matchTopic(query)
	n := min(maxFallbackResults, len(t.books))
	out := make([]scraper.SearchResult, 0, n)
	for i := 0; i < n; i++ {
		b := t.books[i]
		out = append(out, scraper.SearchResult{
			ID:     fmt.Sprintf("fallback-%s-%d", query, i),
			Title:  b.title,
			Author: b.author,
			Price:  s.price(3, 15),
			Image:  "/placeholder.svg?height=200&width=150&query=" + escapeComponent(b.title) + " book cover",
			Link:   "#",
			Rating: s.rating(4, 5),
		})
	}
	return out
}

// price formats a pound amount in [base, base+spread).
func (s *Service) price(base, spread float64) string {
	return fmt.Sprintf("£%.2f", s.random()*spread+base)
}

// rating returns an integer in [lo, hi].
func (s *Service) rating(lo, hi int) int {
	return min(hi, lo+int(s.random()*float64(hi-lo+1)))
}

// componentUnescaper restores the characters a browser leaves bare in a URI
// component but url.QueryEscape encodes.
var componentUnescaper = strings.NewReplacer(
	"+", "%20",
	"%21", "!",
	"%27", "'",
	"%28", "(",
	"%29", ")",
	"%2A", "*",
)

// escapeComponent escapes s like encodeURIComponent.
func escapeComponent(s string) string {
	return componentUnescaper.Replace(url.QueryEscape(s))
}
