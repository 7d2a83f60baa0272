package product

import (
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/wishlist-backend/pkg/slug"
)

const (
	maxNameLength     = 100
	maxColorLength    = 100
	maxCategoryLength = 100
	maxURLLength      = 200
	priceScale        = 2
	priceIntDigits    = 8
)

// FieldErrors maps a form field to a user-facing message.
type FieldErrors map[string]string

func (f FieldErrors) add(field, msg string) {
	if _, exists := f[field]; !exists {
		f[field] = msg
	}
}

// Upload is one image file received with a submission.
type Upload struct {
	Filename string
	Data     []byte
}

type sniffedImage struct {
	data        []byte
	contentType string
	extension   string
}

type validatedSubmission struct {
	name        string
	slug        string
	color       string
	price       decimal.Decimal
	description *string
	url         *string
	category    string
	mainImage   sniffedImage
	extraImage  *sniffedImage
}

// validateSubmission checks every field and reports all failures together.
func validateSubmission(input SubmitProductInput, maxUploadBytes int64) (validatedSubmission, FieldErrors) {
	errs := FieldErrors{}
	out := validatedSubmission{
		name:     strings.TrimSpace(input.Name),
		color:    strings.TrimSpace(input.Color),
		category: strings.TrimSpace(input.Category),
	}

	checkText(errs, "name", out.name, maxNameLength)
	if _, failed := errs["name"]; !failed {
		out.slug = slug.Make(out.name)
		if out.slug == "" {
			errs.add("name", "name must contain letters or digits")
		}
	}
	checkText(errs, "color", out.color, maxColorLength)
	checkText(errs, "category", out.category, maxCategoryLength)

	if price, msg := parsePrice(input.Price); msg != "" {
		errs.add("price", msg)
	} else {
		out.price = price
	}

	if input.Description != nil {
		if d := strings.TrimSpace(*input.Description); d != "" {
			out.description = &d
		}
	}

	if input.URL != nil {
		if raw := strings.TrimSpace(*input.URL); raw != "" {
			if msg := checkURL(raw); msg != "" {
				errs.add("url", msg)
			} else {
				out.url = &raw
			}
		}
	}

	if input.MainImage == nil {
		errs.add("main_image", "this field is required")
	} else if img, msg := sniffImage(*input.MainImage, maxUploadBytes); msg != "" {
		errs.add("main_image", msg)
	} else {
		out.mainImage = img
	}

	if input.ExtraImage != nil {
		if img, msg := sniffImage(*input.ExtraImage, maxUploadBytes); msg != "" {
			errs.add("extra_image", msg)
		} else {
			out.extraImage = &img
		}
	}

	return out, errs
}

func checkText(errs FieldErrors, field, value string, max int) {
	if value == "" {
		errs.add(field, "this field is required")
		return
	}
	if utf8.RuneCountInString(value) > max {
		errs.add(field, fmt.Sprintf("ensure this value has at most %d characters", max))
	}
}

// parsePrice accepts a positive decimal that fits numeric(10,2).
func parsePrice(raw string) (decimal.Decimal, string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Decimal{}, "this field is required"
	}
	price, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, "enter a number"
	}
	if !price.IsPositive() {
		return decimal.Decimal{}, "price must be greater than zero"
	}
	if -price.Exponent() > priceScale {
		return decimal.Decimal{}, fmt.Sprintf("ensure that there are no more than %d decimal places", priceScale)
	}
	if len(price.Truncate(0).String()) > priceIntDigits {
		return decimal.Decimal{}, fmt.Sprintf("ensure that there are no more than %d digits before the decimal point", priceIntDigits)
	}
	return price, ""
}

func checkURL(raw string) string {
	if len(raw) > maxURLLength {
		return fmt.Sprintf("ensure this value has at most %d characters", maxURLLength)
	}
	parsed, err := url.ParseRequestURI(raw)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return "enter a valid URL"
	}
	return ""
}

func sniffImage(upload Upload, maxBytes int64) (sniffedImage, string) {
	if len(upload.Data) == 0 {
		return sniffedImage{}, "the submitted file is empty"
	}
	if maxBytes > 0 && int64(len(upload.Data)) > maxBytes {
		return sniffedImage{}, fmt.Sprintf("file must be at most %d bytes", maxBytes)
	}
	detected := mimetype.Detect(upload.Data)
	if !strings.HasPrefix(detected.String(), "image/") {
		return sniffedImage{}, "upload a valid image"
	}
	return sniffedImage{
		data:        upload.Data,
		contentType: detected.String(),
		extension:   detected.Extension(),
	}, ""
}
