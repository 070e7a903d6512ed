// Package seed creates demo members, posts and hiring requests for
// development databases. It goes through the services so seeded data looks
// exactly like data created through the API.
package seed

import (
	"fmt"
	"strings"
	"time"

	"sherise/internal/models"
	"sherise/internal/service"

	"github.com/brianvoe/gofakeit/v6"
)

// business is a demo business line with the products and hashtags its posts mention.
type business struct {
	Category string
	Names    []string
	Products []string
	Tags     []string
}

var businesses = []business{
	{
		Category: "Food",
		Names:    []string{"Home Bakery", "Millet Kitchen", "Pickle House", "Tiffin Service"},
		Products: []string{"millet cookies", "mango pickle", "ragi laddoos", "banana bread"},
		Tags:     []string{"#homemade", "#healthysnacks", "#supportlocal"},
	},
	{
		Category: "Clothing & Fashion",
		Names:    []string{"Handloom Studio", "Block Print Co", "Kurti Corner"},
		Products: []string{"handloom sarees", "block printed kurtis", "silk scarves"},
		Tags:     []string{"#handloom", "#slowfashion", "#madeinindia"},
	},
	{
		Category: "Beauty",
		Names:    []string{"Herbal Glow", "Neem & Rose", "Soap Story"},
		Products: []string{"neem soap", "rose face serum", "hair oil"},
		Tags:     []string{"#naturalskincare", "#herbal", "#selfcare"},
	},
	{
		Category: "Crafts",
		Names:    []string{"Clay Corner", "Macrame Nest", "Candle Craft"},
		Products: []string{"terracotta planters", "macrame wall hangings", "soy candles"},
		Tags:     []string{"#handmade", "#homedecor", "#artisan"},
	},
}

// HiringCategories are the categories demo hiring requests are posted under.
var HiringCategories = []string{
	"Photography & Design",
	"Clothing & Fashion",
	"Food & Catering",
	"Marketing & Social Media",
	"Packaging & Delivery",
}

var hiringTitles = map[string][]string{
	"Photography & Design":     {"Need a photographer", "Logo designer wanted", "Product shoot for new range"},
	"Clothing & Fashion":       {"Need a tailor", "Embroidery artisan wanted"},
	"Food & Catering":          {"Kitchen helper for weekend orders", "Baker for festive season"},
	"Marketing & Social Media": {"Instagram manager wanted", "Help with WhatsApp catalogue"},
	"Packaging & Delivery":     {"Delivery partner in the city", "Eco-friendly packaging supplier"},
}

// PostDistribution is the share of text-only and image posts, in percent.
type PostDistribution struct {
	Text  int
	Image int
}

var defaultDistribution = PostDistribution{Text: 60, Image: 40}

// CategoryDistributions tunes the post mix per business category.
var CategoryDistributions = map[string]PostDistribution{
	"Crafts":             {Text: 30, Image: 70},
	"Clothing & Fashion": {Text: 20, Image: 80},
}

// computeCounts splits total posts by distribution; image posts absorb rounding.
func computeCounts(total int, d PostDistribution) (text, image int) {
	if total <= 0 {
		return 0, 0
	}
	text = total * d.Text / 100
	return text, total - text
}

// Factory builds fake members, posts and hiring requests.
type Factory struct {
	faker *gofakeit.Faker
	opts  Options
	seq   int
}

// NewFactory returns a factory. A zero opts.RandSeed seeds from the clock.
func NewFactory(opts Options) *Factory {
	seed := opts.RandSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Factory{faker: gofakeit.New(seed), opts: opts}
}

func (f *Factory) pick(list []string) string {
	return f.faker.RandomString(list)
}

func (f *Factory) business() business {
	return businesses[f.faker.Number(0, len(businesses)-1)]
}

// Signup builds a unique demo member. Emails carry a sequence number so repeated
// calls never collide.
func (f *Factory) Signup() service.SignupInput {
	f.seq++
	first, last := f.faker.FirstName(), f.faker.LastName()
	b := f.business()
	product := f.pick(b.Products)
	city := f.faker.City()

	email := fmt.Sprintf("%s.%s.%d@%s", strings.ToLower(first), strings.ToLower(last), f.seq, f.opts.EmailDomain)
	return service.SignupInput{
		Name:     first + " " + last,
		Email:    email,
		Password: f.opts.Password,
		Profile: models.Profile{
			City:       city,
			Business:   f.pick(b.Names),
			Category:   b.Category,
			Product:    product,
			Experience: fmt.Sprintf("%d years", f.faker.Number(1, 12)),
			Stage:      f.pick([]string{"Idea", "Just started", "Growing", "Established"}),
			Goals:      []string{"Reach more customers", "Sell online"},
			Bio:        fmt.Sprintf("I make %s in %s.", product, city),
		},
	}
}

// Post builds the content and optional image of a post by a member of category.
func (f *Factory) Post(category string, withImage bool) (content, image string) {
	b := businesses[0]
	for _, candidate := range businesses {
		if candidate.Category == category {
			b = candidate
			break
		}
	}

	content = fmt.Sprintf("%s Fresh batch of %s ready this week. %s",
		f.faker.Sentence(6), f.pick(b.Products), f.pick(b.Tags))
	if withImage {
		image = fmt.Sprintf("https://picsum.photos/seed/%s/800/800", f.faker.UUID())
	}
	return content, image
}

// Hiring builds a hiring request with a contact address.
func (f *Factory) Hiring() service.HiringInput {
	category := f.pick(HiringCategories)
	return service.HiringInput{
		Title:       f.pick(hiringTitles[category]),
		Description: f.faker.Paragraph(1, 2, 10, " "),
		Category:    category,
		Budget:      fmt.Sprintf("₹%d", f.faker.Number(5, 50)*500),
		Contact:     f.faker.Email(),
	}
}
