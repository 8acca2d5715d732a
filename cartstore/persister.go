package cartstore

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/norun9/bakery-storefront/errdefs"
)

// CartKey is the storage key a cart is persisted under.
const CartKey = "cart"

// Persister translates a Cart to and from its JSON record list in Storage.
type Persister struct {
	storage Storage
	key     string
	log     logrus.FieldLogger
}

func NewPersister(storage Storage, log logrus.FieldLogger) *Persister {
	return &Persister{storage: storage, key: CartKey, log: log.WithField("key", CartKey)}
}

func (p *Persister) Storage() Storage {
	return p.storage
}

func (p *Persister) Key() string {
	return p.key
}

// Load returns the stored cart. Missing or corrupt data yields an empty cart and a
// logged warning; Load never fails.
func (p *Persister) Load(ctx context.Context) Cart {
	c, err := p.read(ctx)
	if err != nil {
		if !errors.Is(err, ErrKeyNotFound) {
			p.log.WithError(err).Warn("discarding unreadable cart")
		}
		return Cart{}
	}
	return c
}

// read is Load without the fallback.
func (p *Persister) read(ctx context.Context) (Cart, error) {
	raw, err := p.storage.Get(ctx, p.key)
	if err != nil {
		return nil, err
	}
	return Decode([]byte(raw))
}

// Save overwrites the stored cart. A failure is a PersistenceWarning.
func (p *Persister) Save(ctx context.Context, c Cart) error {
	data, err := Encode(c)
	if err != nil {
		return errdefs.NewPersistenceWarning("encode cart", err)
	}
	if err := p.storage.Set(ctx, p.key, string(data)); err != nil {
		p.log.WithError(err).Warn("cart not persisted")
		return errdefs.NewPersistenceWarning("save cart", err)
	}
	return nil
}

// Encode renders c as a JSON array; an empty cart is "[]".
func Encode(c Cart) ([]byte, error) {
	if c == nil {
		c = Cart{}
	}
	return json.Marshal(c)
}

// Decode parses a JSON array of line items and rejects records that break the cart
// invariants: empty or repeated IDs, prices outside [0, MaxPrice], quantities
// outside [1, MaxQuantity].
func Decode(data []byte) (Cart, error) {
	var c Cart
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, errors.Wrap(err, "parse cart")
	}
	if c == nil {
		return nil, errors.New("parse cart: not a list")
	}
	seen := make(map[string]struct{}, len(c))
	for i, item := range c {
		switch {
		case item.ID == "":
			return nil, errors.Errorf("parse cart: record %d has no id", i)
		case item.Quantity < 1 || item.Quantity > MaxQuantity:
			return nil, errors.Errorf("parse cart: record %q has quantity %d", item.ID, item.Quantity)
		case item.Price < 0 || item.Price > MaxPrice:
			return nil, errors.Errorf("parse cart: record %q has price %d", item.ID, item.Price)
		}
		if _, dup := seen[item.ID]; dup {
			return nil, errors.Errorf("parse cart: duplicate record %q", item.ID)
		}
		seen[item.ID] = struct{}{}
	}
	return c, nil
}
