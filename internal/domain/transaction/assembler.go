package transaction

import (
	"context"
	"time"

	"ledgercore/internal/core/apperror"
	"ledgercore/internal/core/id"
	"ledgercore/internal/core/types"
	"ledgercore/internal/domain/catalogs/counterparty"
	"ledgercore/internal/domain/catalogs/product"
	"ledgercore/internal/domain/pricing"
	"ledgercore/pkg/validator"
)

// ProductReader resolves products within a tenant.
type ProductReader interface {
	FindByIDs(ctx context.Context, tenantID id.ID, ids []id.ID) ([]*product.Product, error)
}

// ClientReader resolves a client within a tenant.
type ClientReader interface {
	GetByID(ctx context.Context, tenantID, clientID id.ID) (*counterparty.Client, error)
}

// ProviderReader resolves a provider within a tenant.
type ProviderReader interface {
	GetByID(ctx context.Context, tenantID, providerID id.ID) (*counterparty.Provider, error)
}

// Assembler validates a CreateCommand and builds the transaction graph.
// It reads but never writes; stock and persistence are the service's job.
type Assembler struct {
	products  ProductReader
	clients   ClientReader
	providers ProviderReader
	now       func() time.Time
}

// NewAssembler creates an assembler.
func NewAssembler(products ProductReader, clients ClientReader, providers ProviderReader) *Assembler {
	return &Assembler{
		products:  products,
		clients:   clients,
		providers: providers,
		now:       time.Now,
	}
}

// Assemble checks cmd and returns the unsaved transaction. Checks run in a
// fixed order and the first failing one is returned:
// empty lines, duplicate products, counterparty, missing products,
// quantities, prices.
func (a *Assembler) Assemble(ctx context.Context, cmd CreateCommand) (*Transaction, error) {
	if err := validator.Check(cmd); err != nil {
		return nil, err
	}

	if len(cmd.Lines) == 0 {
		return nil, apperror.NewEmptyTransaction()
	}
	if dups := duplicateProducts(cmd.Lines); len(dups) > 0 {
		return nil, apperror.NewDuplicateLineProduct(id.Strings(dups))
	}

	if err := a.resolveCounterparty(ctx, cmd); err != nil {
		return nil, err
	}

	products, err := a.resolveProducts(ctx, cmd)
	if err != nil {
		return nil, err
	}

	var badQty []id.ID
	for _, l := range cmd.Lines {
		if l.Quantity <= 0 {
			badQty = append(badQty, l.ProductID)
		}
	}
	if len(badQty) > 0 {
		return nil, apperror.NewInvalidQuantity(id.Strings(badQty))
	}

	prices := make([]types.Money, len(cmd.Lines))
	var badPrice []id.ID
	for i, l := range cmd.Lines {
		prices[i] = unitPrice(cmd.Type, l, products[l.ProductID])
		if prices[i].IsNegative() {
			badPrice = append(badPrice, l.ProductID)
		}
	}
	if len(badPrice) > 0 {
		return nil, apperror.NewInvalidPrice(id.Strings(badPrice))
	}

	return a.build(cmd, prices), nil
}

func (a *Assembler) resolveCounterparty(ctx context.Context, cmd CreateCommand) error {
	switch cmd.Type {
	case TypeSale:
		c, err := a.clients.GetByID(ctx, cmd.TenantID, cmd.CounterpartyID)
		if err != nil {
			if apperror.IsNotFound(err) {
				return apperror.NewCounterpartyNotFound("client", cmd.CounterpartyID.String())
			}
			return err
		}
		if !c.IsActive {
			return apperror.NewInactiveCounterparty("client", c.ID.String())
		}
	case TypePurchase:
		p, err := a.providers.GetByID(ctx, cmd.TenantID, cmd.CounterpartyID)
		if err != nil {
			if apperror.IsNotFound(err) {
				return apperror.NewCounterpartyNotFound("provider", cmd.CounterpartyID.String())
			}
			return err
		}
		if !p.IsActive {
			return apperror.NewInactiveCounterparty("provider", p.ID.String())
		}
	}
	return nil
}

// resolveProducts loads every line product and reports all missing ids at once.
func (a *Assembler) resolveProducts(ctx context.Context, cmd CreateCommand) (map[id.ID]*product.Product, error) {
	ids := make([]id.ID, len(cmd.Lines))
	for i, l := range cmd.Lines {
		ids[i] = l.ProductID
	}

	found, err := a.products.FindByIDs(ctx, cmd.TenantID, ids)
	if err != nil {
		return nil, err
	}

	byID := make(map[id.ID]*product.Product, len(found))
	for _, p := range found {
		if p.TenantID == cmd.TenantID {
			byID[p.ID] = p
		}
	}

	var missing []id.ID
	for _, pid := range ids {
		if _, ok := byID[pid]; !ok {
			missing = append(missing, pid)
		}
	}
	if len(missing) > 0 {
		return nil, apperror.NewProductNotFound(id.Strings(missing))
	}
	return byID, nil
}

func (a *Assembler) build(cmd CreateCommand, prices []types.Money) *Transaction {
	now := a.now().UTC()

	t := &Transaction{
		Type:            cmd.Type,
		ReferenceNumber: cmd.ReferenceNumber,
		Notes:           cmd.Notes,
		Status:          cmd.Status,
		CreatedBy:       cmd.CreatorUserID,
		Date:            now,
	}
	t.ID = id.New()
	t.TenantID = cmd.TenantID
	t.Version = 1
	t.CreatedAt = now
	t.UpdatedAt = now
	t.Attributes = cmd.Attributes.Clone()

	if t.Status == "" {
		t.Status = StatusCompleted
	}
	if cmd.Date != nil {
		t.Date = cmd.Date.UTC()
	}

	cp := cmd.CounterpartyID
	if cmd.Type == TypeSale {
		t.ClientID = &cp
	} else {
		t.ProviderID = &cp
	}

	t.Lines = make([]Line, len(cmd.Lines))
	priced := make([]pricing.Line, len(cmd.Lines))
	for i, l := range cmd.Lines {
		t.Lines[i] = Line{
			ID:            id.New(),
			TransactionID: t.ID,
			LineNo:        i + 1,
			ProductID:     l.ProductID,
			Quantity:      l.Quantity,
			UnitPrice:     prices[i],
			Subtotal:      pricing.Subtotal(prices[i], l.Quantity),
			Attributes:    l.Attributes.Clone(),
		}
		priced[i] = pricing.Line{UnitPrice: prices[i], Quantity: l.Quantity}
	}
	t.TotalAmount = pricing.Total(priced)

	return t
}

// duplicateProducts returns every product id that appears more than once, in
// order of its second appearance.
func duplicateProducts(lines []LineInput) []id.ID {
	seen := make(map[id.ID]int, len(lines))
	var dups []id.ID
	for _, l := range lines {
		seen[l.ProductID]++
		if seen[l.ProductID] == 2 {
			dups = append(dups, l.ProductID)
		}
	}
	return dups
}

func unitPrice(t Type, l LineInput, p *product.Product) types.Money {
	if l.UnitPrice != nil {
		return *l.UnitPrice
	}
	if t == TypeSale {
		return p.SalePrice
	}
	return p.PurchasePrice
}
