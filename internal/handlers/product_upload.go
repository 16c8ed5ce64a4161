package handlers

import (
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-faster/errors"

	"storefront/internal/apperror"
	"storefront/internal/catalog"
	"storefront/internal/inventory"
	"storefront/internal/models"
)

const (
	maxMultipartMemory = 32 << 20
	maxImageSize       = 5 << 20
)

var allowedImageExtensions = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
	".webp": {},
}

/*
=======================
  INPUT STRUCT
=======================
*/

// MultipartProductInput is a product form post. Each Set flag records
// whether the field was present at all, which is what partial updates need.
type MultipartProductInput struct {
	Name               string
	NameSet            bool
	Description        string
	DescriptionSet     bool
	CurrentPrice       float64
	CurrentPriceSet    bool
	OriginalPrice      float64
	OriginalPriceSet   bool
	DiscountPercent    float64
	DiscountPercentSet bool
	Rating             float64
	RatingSet          bool
	ReviewCount        int
	ReviewCountSet     bool
	Status             string
	StatusSet          bool
	Intake             string
	IntakeSet          bool
	ImageURL           string
	ImageURLSet        bool
	RemoveImage        bool
	CategoryID         string
	CategoryIDSet      bool
	Category           string
	CategorySet        bool
	Specs              models.Specs
	SpecsSet           bool
	Sizes              []string
	SizesSet           bool
	Colors             []inventory.ColorInput
	ColorsSet          bool
	Image              *multipart.FileHeader
}

/*
=======================
  PARSER
=======================
*/

func isMultipart(c *gin.Context) bool {
	return strings.HasPrefix(c.ContentType(), "multipart/form-data")
}

func parseMultipartProductRequest(c *gin.Context) (MultipartProductInput, error) {
	if err := c.Request.ParseMultipartForm(maxMultipartMemory); err != nil {
		return MultipartProductInput{}, apperror.Wrap(apperror.KindValidation, err, "invalid multipart form")
	}

	input := MultipartProductInput{}
	var err error

	// ---- STRING FIELDS ----

	input.Name, input.NameSet = postFormTrimmed(c, "name")
	input.Description, input.DescriptionSet = postFormTrimmed(c, "description")
	input.Status, input.StatusSet = postFormTrimmed(c, "status")
	input.Intake, input.IntakeSet = postFormTrimmed(c, "intake")
	input.ImageURL, input.ImageURLSet = postFormTrimmed(c, "image_url")
	input.CategoryID, input.CategoryIDSet = postFormTrimmed(c, "category_id")
	input.Category, input.CategorySet = postFormTrimmed(c, "category")

	// ---- NUMBER FIELDS ----

	if input.CurrentPrice, input.CurrentPriceSet, err = postFormFloat(c, "current_price"); err != nil {
		return MultipartProductInput{}, err
	}
	if input.OriginalPrice, input.OriginalPriceSet, err = postFormFloat(c, "original_price"); err != nil {
		return MultipartProductInput{}, err
	}
	if input.DiscountPercent, input.DiscountPercentSet, err = postFormFloat(c, "discount_percent"); err != nil {
		return MultipartProductInput{}, err
	}
	if input.Rating, input.RatingSet, err = postFormFloat(c, "rating"); err != nil {
		return MultipartProductInput{}, err
	}
	if value, ok := postFormTrimmed(c, "review_count"); ok && value != "" {
		parsed, convErr := strconv.Atoi(value)
		if convErr != nil {
			return MultipartProductInput{}, apperror.Validation("review_count must be an integer")
		}
		input.ReviewCount = parsed
		input.ReviewCountSet = true
	}

	// ---- BOOL FIELDS ----

	if value, ok := c.GetPostForm("remove_image"); ok {
		parsed, convErr := parseBoolValue(value)
		if convErr != nil {
			return MultipartProductInput{}, apperror.Validation("remove_image must be a boolean")
		}
		input.RemoveImage = parsed
	}

	// ---- JSON-ENCODED FIELDS ----

	if value, ok := postFormTrimmed(c, "colors"); ok {
		if err := decodeFormJSON(value, "colors", &input.Colors); err != nil {
			return MultipartProductInput{}, err
		}
		input.ColorsSet = true
	}

	if value, ok := postFormTrimmed(c, "specs"); ok {
		if err := decodeFormJSON(value, "specs", &input.Specs); err != nil {
			return MultipartProductInput{}, err
		}
		input.SpecsSet = true
	}

	// sizes arrive either as repeated fields or as one JSON array
	if values, ok := c.GetPostFormArray("sizes"); ok {
		input.Sizes, err = parseSizes(values)
		if err != nil {
			return MultipartProductInput{}, err
		}
		input.SizesSet = true
	}

	// ---- IMAGE FILE ----

	file, err := c.FormFile("image")
	switch {
	case err == nil:
		if err := checkImageFile(file); err != nil {
			return MultipartProductInput{}, err
		}
		input.Image = file
	case errors.Is(err, http.ErrMissingFile):
	default:
		return MultipartProductInput{}, apperror.Wrap(apperror.KindValidation, err, "invalid image upload")
	}

	return input, nil
}

func (in MultipartProductInput) toInput() catalog.ProductInput {
	return catalog.ProductInput{
		Name:            in.Name,
		Description:     in.Description,
		CurrentPrice:    in.CurrentPrice,
		OriginalPrice:   in.OriginalPrice,
		DiscountPercent: in.DiscountPercent,
		Rating:          in.Rating,
		ReviewCount:     in.ReviewCount,
		Status:          in.Status,
		Intake:          in.Intake,
		ImageURL:        in.ImageURL,
		Specs:           in.Specs,
		Sizes:           in.Sizes,
		CategoryID:      in.CategoryID,
		Category:        in.Category,
		Colors:          in.Colors,
	}
}

func (in MultipartProductInput) toPatch() catalog.ProductPatch {
	patch := catalog.ProductPatch{RemoveImage: in.RemoveImage}
	if in.NameSet {
		patch.Name = &in.Name
	}
	if in.DescriptionSet {
		patch.Description = &in.Description
	}
	if in.CurrentPriceSet {
		patch.CurrentPrice = &in.CurrentPrice
	}
	if in.OriginalPriceSet {
		patch.OriginalPrice = &in.OriginalPrice
	}
	if in.DiscountPercentSet {
		patch.DiscountPercent = &in.DiscountPercent
	}
	if in.RatingSet {
		patch.Rating = &in.Rating
	}
	if in.ReviewCountSet {
		patch.ReviewCount = &in.ReviewCount
	}
	if in.StatusSet {
		patch.Status = &in.Status
	}
	if in.IntakeSet {
		patch.Intake = &in.Intake
	}
	if in.ImageURLSet {
		patch.ImageURL = &in.ImageURL
	}
	if in.CategoryIDSet {
		patch.CategoryID = &in.CategoryID
	}
	if in.CategorySet {
		patch.Category = &in.Category
	}
	if in.SpecsSet {
		patch.Specs = &in.Specs
	}
	if in.SizesSet {
		patch.Sizes = &in.Sizes
	}
	if in.ColorsSet {
		patch.Colors = &in.Colors
	}
	return patch
}

/*
=======================
  IMAGE CHECKS
=======================
*/

func checkImageFile(file *multipart.FileHeader) error {
	extension := strings.ToLower(filepath.Ext(file.Filename))
	if extension == "" {
		return apperror.Validation("image file extension is required")
	}
	if _, ok := allowedImageExtensions[extension]; !ok {
		return apperror.Validation("unsupported image type: " + extension)
	}
	if file.Size > maxImageSize {
		return apperror.Validation("image file too large (max 5MB)")
	}
	return nil
}

// openImage opens the uploaded file. A nil header yields a nil reader, never
// a typed nil.
func openImage(file *multipart.FileHeader) (io.Reader, func(), error) {
	if file == nil {
		return nil, func() {}, nil
	}
	f, err := file.Open()
	if err != nil {
		return nil, func() {}, apperror.Wrap(apperror.KindValidation, err, "could not read image upload")
	}
	return f, func() { _ = f.Close() }, nil
}

/*
=======================
  HELPERS
=======================
*/

func postFormTrimmed(c *gin.Context, key string) (string, bool) {
	value, ok := c.GetPostForm(key)
	return strings.TrimSpace(value), ok
}

// postFormFloat treats an empty field as absent.
func postFormFloat(c *gin.Context, key string) (float64, bool, error) {
	value, ok := postFormTrimmed(c, key)
	if !ok || value == "" {
		return 0, false, nil
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, false, apperror.Validation(key + " must be a number")
	}
	return parsed, true, nil
}

func decodeFormJSON(value, field string, dst interface{}) error {
	if value == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(value), dst); err != nil {
		return apperror.Wrap(apperror.KindValidation, err, field+" must be valid JSON")
	}
	return nil
}

func parseSizes(values []string) ([]string, error) {
	if len(values) == 1 && strings.HasPrefix(strings.TrimSpace(values[0]), "[") {
		var sizes []string
		if err := decodeFormJSON(strings.TrimSpace(values[0]), "sizes", &sizes); err != nil {
			return nil, err
		}
		return sizes, nil
	}
	sizes := make([]string, 0, len(values))
	for _, value := range values {
		if value = strings.TrimSpace(value); value != "" {
			sizes = append(sizes, value)
		}
	}
	return sizes, nil
}

func parseBoolValue(value string) (bool, error) {
	value = strings.TrimSpace(strings.ToLower(value))
	if value == "on" {
		return true, nil
	}
	return strconv.ParseBool(value)
}
