// internal/domain/mapdoc/entity.go
package mapdoc

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"regexp"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/blake2b"
)

const CurrentVersion = 1

var (
	ErrInvalidCoordinates = errors.New("marker coordinates must be {lat,lng}, [lat,lng] or top-level lat/lng")
	ErrInvalidSlug        = errors.New("map slug must match ^[a-z0-9][a-z0-9_-]{0,63}$")
)

var slugPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,63}$`)

// Marker types the editor knows how to draw.
const (
	TypeHouse      = "house"
	TypeShop       = "shop"
	TypeGovernment = "government"
)

// Document is the persisted map: the same shape the editor downloads as
// rdo_main.json.
type Document struct {
	Version   int      `json:"version" binding:"omitempty,eq=1"`
	UpdatedAt string   `json:"updatedAt"`
	Markers   []Marker `json:"markers" binding:"max=5000,dive"`
}

type Marker struct {
	ID          string      `json:"id" binding:"omitempty,max=128,printascii"`
	Name        string      `json:"name" binding:"max=200"`
	Type        string      `json:"type" binding:"required,oneof=house shop government"`
	Status      string      `json:"status" binding:"max=200"`
	Description string      `json:"description" binding:"max=4000"`
	Coordinates Coordinates `json:"coordinates"`
}

type Coordinates struct {
	Lat float64 `json:"lat" binding:"finite"`
	Lng float64 `json:"lng" binding:"finite"`
}

// Empty is what an unknown map looks like.
func Empty() *Document {
	return &Document{Version: CurrentVersion, UpdatedAt: "", Markers: []Marker{}}
}

// Normalize fills defaults a client may leave out.
func (d *Document) Normalize() {
	if d.Version == 0 {
		d.Version = CurrentVersion
	}
	if d.Markers == nil {
		d.Markers = []Marker{}
	}
}

// Touch stamps updatedAt in the editor's ISO-8601 millisecond format.
func (d *Document) Touch(now time.Time) {
	d.UpdatedAt = now.UTC().Format("2006-01-02T15:04:05.000Z07:00")
}

// UnmarshalJSON accepts coordinates as an object, as a [lat,lng] pair or as
// top-level lat/lng fields, in that order of preference.
func (m *Marker) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID          string          `json:"id"`
		Name        string          `json:"name"`
		Type        string          `json:"type"`
		Status      string          `json:"status"`
		Description string          `json:"description"`
		Coordinates json.RawMessage `json:"coordinates"`
		Lat         *float64        `json:"lat"`
		Lng         *float64        `json:"lng"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	coords, err := decodeCoordinates(raw.Coordinates, raw.Lat, raw.Lng)
	if err != nil {
		if raw.ID != "" {
			return fmt.Errorf("marker %q: %w", raw.ID, err)
		}
		return err
	}

	*m = Marker{
		ID:          raw.ID,
		Name:        raw.Name,
		Type:        raw.Type,
		Status:      raw.Status,
		Description: raw.Description,
		Coordinates: coords,
	}
	return nil
}

func decodeCoordinates(nested json.RawMessage, lat, lng *float64) (Coordinates, error) {
	if len(nested) > 0 && !bytes.Equal(nested, []byte("null")) {
		var obj struct {
			Lat *float64 `json:"lat"`
			Lng *float64 `json:"lng"`
		}
		if err := json.Unmarshal(nested, &obj); err == nil && obj.Lat != nil && obj.Lng != nil {
			return finite(*obj.Lat, *obj.Lng)
		}

		var pair []float64
		if err := json.Unmarshal(nested, &pair); err == nil && len(pair) == 2 {
			return finite(pair[0], pair[1])
		}
	}

	if lat != nil && lng != nil {
		return finite(*lat, *lng)
	}
	return Coordinates{}, ErrInvalidCoordinates
}

func finite(lat, lng float64) (Coordinates, error) {
	if !isFinite(lat) || !isFinite(lng) {
		return Coordinates{}, ErrInvalidCoordinates
	}
	return Coordinates{Lat: lat, Lng: lng}, nil
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// ValidSlug reports whether slug names a map.
func ValidSlug(slug string) bool {
	return slugPattern.MatchString(slug)
}

// Encode renders the stored representation: two-space indented JSON without
// HTML escaping, as the editor's own download produces.
func Encode(doc *Document) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// ETag is the strong entity tag of a stored body.
func ETag(body []byte) string {
	sum := blake2b.Sum256(body)
	return `"` + hex.EncodeToString(sum[:]) + `"`
}

// EmptyETag is the tag of a map that has never been saved.
func EmptyETag() string {
	body, _ := Encode(Empty())
	return ETag(body)
}

// RegisterValidations adds the custom tags used by Document to v.
func RegisterValidations(v *validator.Validate) error {
	return v.RegisterValidation("finite", func(fl validator.FieldLevel) bool {
		switch fl.Field().Kind() {
		case reflect.Float32, reflect.Float64:
			return isFinite(fl.Field().Float())
		default:
			return false
		}
	})
}
