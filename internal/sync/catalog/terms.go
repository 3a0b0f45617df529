package catalog

import (
	"context"
	"strings"
	"sync"

	"WooWithBizimHesap/internal/database/model/staging"
	"WooWithBizimHesap/internal/mapping"
	"WooWithBizimHesap/internal/wooapi/models"
	"WooWithBizimHesap/pkg/logging"
	"github.com/pkg/errors"
	"golang.org/x/sync/singleflight"
)

var errNotCreated = errors.New("WooCommerce returned no term")

// terms maps staging category and brand names to WooCommerce terms, creating
// missing ones. Lookups are cached for the life of the pipeline. A failed
// lookup leaves the product without that term; the push goes on.
//
// mu guards the caches only; remote calls run unlocked and concurrent
// callers share one call per list or per missing name.
type terms struct {
	commerce termAPI
	logger   *logging.Logger
	calls    singleflight.Group

	mu         sync.Mutex
	categories map[string]int64
	brandAttr  *models.Attribute
	brands     map[string]int64
	tags       map[string]int64
}

type termAPI interface {
	ListCategories(ctx context.Context, page, perPage int) ([]models.ProductCategory, error)
	CreateCategory(ctx context.Context, c *models.ProductCategory) (*models.ProductCategory, error)
	ListAttributes(ctx context.Context) ([]models.Attribute, error)
	ListAttributeTerms(ctx context.Context, attributeID int64, page, perPage int) ([]models.AttributeTerm, error)
	CreateAttributeTerm(ctx context.Context, attributeID int64, t *models.AttributeTerm) (*models.AttributeTerm, error)
	ListTags(ctx context.Context, page, perPage int) ([]models.Tag, error)
}

func newTerms(commerce termAPI, logger *logging.Logger) *terms {
	return &terms{commerce: commerce, logger: logger}
}

func key(name string) string { return strings.ToLower(strings.TrimSpace(name)) }

func (t *terms) apply(ctx context.Context, rec *staging.Record, p *models.Product) {
	if rec.Category != "" {
		if id := t.category(ctx, rec.Category); id > 0 {
			p.Categories = []models.Categories{{Id: id}}
		}
	}
	if rec.Brand == "" {
		return
	}
	attr, ok := t.brandAttribute(ctx)
	if !ok {
		// stores without a brand attribute often tag products by brand
		if id := t.tag(ctx, rec.Brand); id > 0 {
			p.Tags = append(p.Tags, models.Categories{Id: id})
		}
		return
	}
	if t.brand(ctx, attr.ID, rec.Brand) > 0 {
		p.Attributes = append(p.Attributes, models.ProductAttribute{
			Id: attr.ID, Name: attr.Name, Visible: true, Options: []string{strings.TrimSpace(rec.Brand)},
		})
	}
}

// lister pages through one term list.
type lister func(ctx context.Context, page int) (map[string]int64, int, error)

// resolve returns the id cached in slot for name. The list is loaded on
// first use; a name still missing after that is created when create is set.
func (t *terms) resolve(ctx context.Context, kind string, slot *map[string]int64, name string,
	list lister, create func(ctx context.Context) (int64, error)) int64 {
	k := key(name)
	id, loaded := t.cached(slot, k)
	if id > 0 {
		return id
	}
	if !loaded {
		_, err, _ := t.calls.Do(kind, func() (interface{}, error) {
			if _, done := t.cached(slot, k); done {
				return nil, nil
			}
			all := make(map[string]int64)
			for page := 1; ; page++ {
				part, n, err := list(ctx, page)
				if err != nil {
					return nil, err
				}
				for name, id := range part {
					all[name] = id
				}
				if n < 100 {
					break
				}
			}
			t.mu.Lock()
			*slot = all
			t.mu.Unlock()
			return nil, nil
		})
		if err != nil {
			t.logger.Warnf("%s unavailable: %v", kind, err)
			return 0
		}
		if id, _ = t.cached(slot, k); id > 0 {
			return id
		}
	}
	if create == nil {
		return 0
	}

	v, err, _ := t.calls.Do(kind+"/"+k, func() (interface{}, error) {
		if id, _ := t.cached(slot, k); id > 0 {
			return id, nil
		}
		id, err := create(ctx)
		if err != nil {
			return int64(0), err
		}
		t.mu.Lock()
		(*slot)[k] = id
		t.mu.Unlock()
		return id, nil
	})
	if err != nil {
		t.logger.Warnf("%s %q not created: %v", kind, name, err)
		return 0
	}
	return v.(int64)
}

// cached reports the id under k and whether the list was loaded.
func (t *terms) cached(slot *map[string]int64, k string) (int64, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if *slot == nil {
		return 0, false
	}
	return (*slot)[k], true
}

func (t *terms) category(ctx context.Context, name string) int64 {
	return t.resolve(ctx, "categories", &t.categories, name,
		func(ctx context.Context, page int) (map[string]int64, int, error) {
			cats, err := t.commerce.ListCategories(ctx, page, 100)
			if err != nil {
				return nil, 0, err
			}
			out := make(map[string]int64, len(cats))
			for _, c := range cats {
				out[key(c.Name)] = c.ID
			}
			return out, len(cats), nil
		},
		func(ctx context.Context) (int64, error) {
			created, err := t.commerce.CreateCategory(ctx, &models.ProductCategory{Name: strings.TrimSpace(name)})
			if err != nil {
				return 0, err
			}
			if created == nil {
				return 0, errNotCreated
			}
			return created.ID, nil
		})
}

func (t *terms) brandAttribute(ctx context.Context) (models.Attribute, bool) {
	t.mu.Lock()
	attr := t.brandAttr
	t.mu.Unlock()
	if attr != nil {
		return *attr, attr.ID > 0
	}

	v, err, _ := t.calls.Do("attributes", func() (interface{}, error) {
		attrs, err := t.commerce.ListAttributes(ctx)
		if err != nil {
			return nil, err
		}
		found := &models.Attribute{}
		for _, a := range attrs {
			if mapping.IsBrandAttribute(a) {
				a := a
				found = &a
				break
			}
		}
		if found.ID == 0 {
			t.logger.Warn("store has no brand attribute, brands go to existing tags")
		}
		t.mu.Lock()
		t.brandAttr = found
		t.mu.Unlock()
		return found, nil
	})
	if err != nil {
		t.logger.Warnf("attributes unavailable: %v", err)
		return models.Attribute{}, false
	}
	attr = v.(*models.Attribute)
	return *attr, attr.ID > 0
}

func (t *terms) brand(ctx context.Context, attrID int64, name string) int64 {
	return t.resolve(ctx, "brand terms", &t.brands, name,
		func(ctx context.Context, page int) (map[string]int64, int, error) {
			list, err := t.commerce.ListAttributeTerms(ctx, attrID, page, 100)
			if err != nil {
				return nil, 0, err
			}
			out := make(map[string]int64, len(list))
			for _, term := range list {
				out[key(term.Name)] = term.ID
			}
			return out, len(list), nil
		},
		func(ctx context.Context) (int64, error) {
			created, err := t.commerce.CreateAttributeTerm(ctx, attrID, &models.AttributeTerm{Name: strings.TrimSpace(name)})
			if err != nil {
				return 0, err
			}
			if created == nil {
				return 0, errNotCreated
			}
			return created.ID, nil
		})
}

// tag finds an existing product tag; tags are never created.
func (t *terms) tag(ctx context.Context, name string) int64 {
	return t.resolve(ctx, "tags", &t.tags, name,
		func(ctx context.Context, page int) (map[string]int64, int, error) {
			list, err := t.commerce.ListTags(ctx, page, 100)
			if err != nil {
				return nil, 0, err
			}
			out := make(map[string]int64, len(list))
			for _, tag := range list {
				out[key(tag.Name)] = tag.ID
			}
			return out, len(list), nil
		}, nil)
}
