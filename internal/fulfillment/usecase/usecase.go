package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/fekuna/omnipos-warehouse-service/internal/allocation"
	"github.com/fekuna/omnipos-warehouse-service/internal/apperrors"
	"github.com/fekuna/omnipos-warehouse-service/internal/catalog"
	"github.com/fekuna/omnipos-warehouse-service/internal/document"
	"github.com/fekuna/omnipos-warehouse-service/internal/fulfillment"
	"github.com/fekuna/omnipos-warehouse-service/internal/fulfillment/dto"
	"github.com/fekuna/omnipos-warehouse-service/internal/ledger"
	"github.com/fekuna/omnipos-warehouse-service/internal/model"
	"github.com/fekuna/omnipos-warehouse-service/internal/sequence"
	"github.com/fekuna/omnipos-warehouse-service/pkg/database/postgres"
	"github.com/fekuna/omnipos-warehouse-service/pkg/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Locker serializes stage commands across operators. cache.RedisClient
// implements it.
type Locker interface {
	AcquireLock(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, key, value string) error
}

type fulfillmentUseCase struct {
	repo      fulfillment.Repository
	store     *ledger.Store
	engine    *allocation.Engine
	catalog   catalog.Repository
	sequences *sequence.Generator
	renderer  document.Renderer
	locker    Locker
	txm       postgres.TxManager
	logger    logger.ZapLogger
}

func NewFulfillmentUseCase(
	repo fulfillment.Repository,
	store *ledger.Store,
	engine *allocation.Engine,
	catalogRepo catalog.Repository,
	sequences *sequence.Generator,
	renderer document.Renderer,
	locker Locker,
	txm postgres.TxManager,
	log logger.ZapLogger,
) fulfillment.UseCase {
	return &fulfillmentUseCase{
		repo:      repo,
		store:     store,
		engine:    engine,
		catalog:   catalogRepo,
		sequences: sequences,
		renderer:  renderer,
		locker:    locker,
		txm:       txm,
		logger:    log,
	}
}

// withOrderLock serializes stage commands per order through a redis lock, so
// two operators cannot race the same transition. The database transaction
// remains the correctness backstop.
func (uc *fulfillmentUseCase) withOrderLock(ctx context.Context, tenantID, orderID string, fn func() error) error {
	if uc.locker == nil {
		return fn()
	}
	lockKey := fmt.Sprintf("lock:order:%s:%s", tenantID, orderID)
	lockValue := uuid.New().String()

	acquired := false
	for i := 0; i < 3; i++ {
		ok, err := uc.locker.AcquireLock(ctx, lockKey, lockValue, 5*time.Second)
		if err != nil {
			uc.logger.Error("failed to acquire order lock", zap.Error(err))
		}
		if ok {
			acquired = true
			break
		}
		time.Sleep(100 * time.Millisecond)
	}
	if !acquired {
		return fmt.Errorf("%w: order %s is busy", apperrors.ErrConcurrencyConflict, orderID)
	}
	defer uc.locker.ReleaseLock(ctx, lockKey, lockValue)

	return fn()
}

func (uc *fulfillmentUseCase) CreateOrder(ctx context.Context, input *dto.CreateOrderInput) (*model.FulfillmentOrder, error) {
	if len(input.Lines) == 0 {
		return nil, apperrors.Validation("lines", "at least one line required")
	}
	for _, line := range input.Lines {
		if line.ProductID == "" {
			return nil, apperrors.Validation("product_id", "required")
		}
		if line.Quantity <= 0 {
			return nil, apperrors.Validation("quantity", "must be positive")
		}
		if _, err := uc.catalog.GetProduct(ctx, input.TenantID, line.ProductID); err != nil {
			return nil, err
		}
	}

	now := time.Now()
	order := &model.FulfillmentOrder{
		BaseModel: model.BaseModel{ID: uuid.New().String(), CreatedAt: now, UpdatedAt: now},
		TenantID:  input.TenantID,
		State:     model.OrderStateCreated,
		Notes:     input.Notes,
		CreatedBy: input.ActorID,
	}
	if input.CustomerRef != "" {
		ref := input.CustomerRef
		order.CustomerRef = &ref
	}
	for i, line := range input.Lines {
		order.Lines = append(order.Lines, model.OrderLine{
			ID:              uuid.New().String(),
			OrderID:         order.ID,
			LineNo:          i + 1,
			ProductID:       line.ProductID,
			OrderedQuantity: line.Quantity,
			UnitPrice:       line.UnitPrice,
		})
	}

	err := uc.txm.WithinTx(ctx, func(ctx context.Context) error {
		number, err := uc.sequences.NextDocumentNumber(ctx, input.TenantID, model.DocTypeOrder, now)
		if err != nil {
			return err
		}
		order.OrderNumber = number
		return uc.repo.CreateOrder(ctx, order)
	})
	if err != nil {
		return nil, err
	}

	uc.logger.Info("order created",
		zap.String("tenant_id", order.TenantID),
		zap.String("order_id", order.ID),
		zap.String("order_number", order.OrderNumber),
		zap.Int("lines", len(order.Lines)),
	)
	return order, nil
}

func (uc *fulfillmentUseCase) GetByID(ctx context.Context, tenantID, id string) (*model.FulfillmentOrder, error) {
	return uc.repo.GetByID(ctx, tenantID, id)
}

func (uc *fulfillmentUseCase) FindAll(ctx context.Context, filters *dto.OrderFilters) ([]model.FulfillmentOrder, int, error) {
	return uc.repo.FindAll(ctx, filters)
}

func (uc *fulfillmentUseCase) Allocate(ctx context.Context, tenantID, orderID, actorID string) (*model.FulfillmentOrder, error) {
	err := uc.withOrderLock(ctx, tenantID, orderID, func() error {
		order, err := uc.repo.GetByID(ctx, tenantID, orderID)
		if err != nil {
			return err
		}
		if order.State != model.OrderStateCreated {
			return apperrors.InvalidState("order", string(order.State), "allocate")
		}

		// Strategy depends on whether the product tracks expiry.
		strategies := make(map[string]allocation.Strategy, len(order.Lines))
		for _, line := range order.Lines {
			product, err := uc.catalog.GetProduct(ctx, tenantID, line.ProductID)
			if err != nil {
				return err
			}
			if product.TrackExpiry {
				strategies[line.ProductID] = allocation.FEFO
			} else {
				strategies[line.ProductID] = allocation.FIFO
			}
		}

		// One transaction across all lines: a shortfall on any line rolls
		// back the reservations already made for earlier lines.
		return uc.txm.WithinTx(ctx, func(ctx context.Context) error {
			for _, line := range order.Lines {
				allocs, err := uc.engine.Allocate(ctx, tenantID, line.ProductID, line.OrderedQuantity, strategies[line.ProductID])
				if err != nil {
					return fmt.Errorf("line %d: %w", line.LineNo, err)
				}
				for i := range allocs {
					allocs[i].OrderLineID = line.ID
				}
				if err := uc.repo.SaveAllocations(ctx, allocs); err != nil {
					return err
				}
			}
			return uc.repo.UpdateStateFrom(ctx, tenantID, orderID, model.OrderStateCreated, model.OrderStateAllocated)
		})
	})
	if err != nil {
		return nil, err
	}
	return uc.repo.GetByID(ctx, tenantID, orderID)
}

func (uc *fulfillmentUseCase) Pick(ctx context.Context, tenantID, orderID, actorID string, picks []dto.PickEntry) (*model.FulfillmentOrder, error) {
	if len(picks) == 0 {
		return nil, apperrors.Validation("picks", "at least one pick entry required")
	}

	err := uc.withOrderLock(ctx, tenantID, orderID, func() error {
		order, err := uc.repo.GetByID(ctx, tenantID, orderID)
		if err != nil {
			return err
		}
		if order.State != model.OrderStateAllocated {
			return apperrors.InvalidState("order", string(order.State), "pick")
		}

		type allocRef struct {
			alloc *model.Allocation
			line  *model.OrderLine
		}
		allocIndex := map[string]allocRef{}
		for i := range order.Lines {
			line := &order.Lines[i]
			for j := range line.Allocations {
				allocIndex[line.Allocations[j].ID] = allocRef{alloc: &line.Allocations[j], line: line}
			}
		}

		return uc.txm.WithinTx(ctx, func(ctx context.Context) error {
			touched := map[string]*model.OrderLine{}
			for _, pick := range picks {
				if pick.Quantity <= 0 {
					return apperrors.Validation("quantity", "must be positive")
				}
				ref, ok := allocIndex[pick.AllocationID]
				if !ok {
					return apperrors.NotFound("allocation", pick.AllocationID)
				}

				newPicked := ref.alloc.PickedQuantity + pick.Quantity
				if newPicked > ref.alloc.AllocatedQuantity {
					return apperrors.QuantityMismatch(
						fmt.Sprintf("allocation %s", ref.alloc.ID),
						ref.alloc.AllocatedQuantity, newPicked)
				}

				// Picking consumes the reservation and is the moment the
				// quantity physically leaves: one pick movement per chunk.
				if _, err := uc.store.Apply(ctx, tenantID, ledger.StockOp{
					PositionID:    ref.alloc.PositionID,
					ReservedDelta: -pick.Quantity,
					Movement: &ledger.MovementSpec{
						Type:            model.MovementPick,
						ReferenceType:   "fulfillment_order",
						ReferenceID:     order.ID,
						ReferenceNumber: order.OrderNumber,
						ActorID:         actorID,
					},
				}); err != nil {
					return err
				}

				ref.alloc.PickedQuantity = newPicked
				if err := uc.repo.UpdateAllocationPicked(ctx, ref.alloc.ID, newPicked); err != nil {
					return err
				}
				ref.line.PickedQuantity += pick.Quantity
				touched[ref.line.ID] = ref.line
			}

			for _, line := range touched {
				if err := uc.repo.UpdateLineQuantities(ctx, line.ID, line.PickedQuantity, line.PackedQuantity); err != nil {
					return err
				}
			}

			// The order advances only once every line is fully picked.
			for _, line := range order.Lines {
				if line.PickedQuantity != line.OrderedQuantity {
					return nil
				}
			}
			return uc.repo.UpdateStateFrom(ctx, tenantID, orderID, model.OrderStateAllocated, model.OrderStatePicked)
		})
	})
	if err != nil {
		return nil, err
	}
	return uc.repo.GetByID(ctx, tenantID, orderID)
}

func (uc *fulfillmentUseCase) Pack(ctx context.Context, tenantID, orderID, actorID string, packages []dto.PackageInput) (*model.FulfillmentOrder, error) {
	if len(packages) == 0 {
		return nil, apperrors.Validation("packages", "at least one package required")
	}

	err := uc.withOrderLock(ctx, tenantID, orderID, func() error {
		order, err := uc.repo.GetByID(ctx, tenantID, orderID)
		if err != nil {
			return err
		}
		// Advancing before the pick is complete is a quantity problem, not a
		// plain state problem: name the short line.
		if order.State == model.OrderStateAllocated {
			for _, line := range order.Lines {
				if line.PickedQuantity != line.OrderedQuantity {
					return apperrors.QuantityMismatch(
						fmt.Sprintf("order line %d", line.LineNo),
						line.OrderedQuantity, line.PickedQuantity)
				}
			}
		}
		if order.State != model.OrderStatePicked {
			return apperrors.InvalidState("order", string(order.State), "pack")
		}

		lineIndex := map[string]*model.OrderLine{}
		for i := range order.Lines {
			lineIndex[order.Lines[i].ID] = &order.Lines[i]
		}

		// Validate the grouping before writing anything. Packing never moves
		// stock; it only groups picked units.
		newPacked := map[string]float64{}
		for _, pkg := range packages {
			if len(pkg.Lines) == 0 {
				return apperrors.Validation("package.lines", "at least one line required")
			}
			for _, pl := range pkg.Lines {
				line, ok := lineIndex[pl.OrderLineID]
				if !ok {
					return apperrors.NotFound("order line", pl.OrderLineID)
				}
				if pl.Quantity <= 0 {
					return apperrors.Validation("quantity", "must be positive")
				}
				total := line.PackedQuantity + newPacked[line.ID] + pl.Quantity
				if total > line.PickedQuantity {
					return apperrors.QuantityMismatch(
						fmt.Sprintf("order line %d", line.LineNo),
						line.PickedQuantity, total)
				}
				newPacked[line.ID] += pl.Quantity
			}
		}

		return uc.txm.WithinTx(ctx, func(ctx context.Context) error {
			existing, err := uc.repo.CountPackages(ctx, orderID)
			if err != nil {
				return err
			}
			now := time.Now()
			for i, pkg := range packages {
				p := &model.Package{
					ID:        uuid.New().String(),
					OrderID:   orderID,
					PackageNo: existing + i + 1,
					CreatedAt: now,
				}
				for _, pl := range pkg.Lines {
					p.Lines = append(p.Lines, model.PackageLine{
						ID:          uuid.New().String(),
						PackageID:   p.ID,
						OrderLineID: pl.OrderLineID,
						Quantity:    pl.Quantity,
					})
				}
				if err := uc.repo.CreatePackage(ctx, p); err != nil {
					return err
				}
			}

			// The guarded increment, not the snapshot arithmetic above, is
			// what keeps packed under picked across interleavings.
			complete := true
			for _, line := range order.Lines {
				if delta := newPacked[line.ID]; delta > 0 {
					if err := uc.repo.AddLinePacked(ctx, line.ID, delta); err != nil {
						return err
					}
				}
				if line.PackedQuantity+newPacked[line.ID] != line.PickedQuantity {
					complete = false
				}
			}
			if !complete {
				return nil
			}
			return uc.repo.UpdateStateFrom(ctx, tenantID, orderID, model.OrderStatePicked, model.OrderStatePacked)
		})
	})
	if err != nil {
		return nil, err
	}
	return uc.repo.GetByID(ctx, tenantID, orderID)
}

func (uc *fulfillmentUseCase) Ship(ctx context.Context, tenantID, orderID, actorID string, input *dto.ShipInput) (*model.FulfillmentOrder, error) {
	if input.TransporterID == "" {
		return nil, apperrors.Validation("transporter_id", "required")
	}

	err := uc.withOrderLock(ctx, tenantID, orderID, func() error {
		order, err := uc.repo.GetByID(ctx, tenantID, orderID)
		if err != nil {
			return err
		}
		if order.State != model.OrderStatePacked {
			return apperrors.InvalidState("order", string(order.State), "ship")
		}

		now := time.Now()
		return uc.txm.WithinTx(ctx, func(ctx context.Context) error {
			// Shipping moves no quantity; it issues the dispatch document and
			// pins the transporter metadata.
			artifactNumber, err := uc.sequences.NextDocumentNumber(ctx, tenantID, model.DocTypeDispatch, now)
			if err != nil {
				return err
			}
			data, err := uc.buildShipmentDocument(ctx, order, artifactNumber, actorID, now)
			if err != nil {
				return err
			}
			artifactRef, err := uc.renderer.Render(ctx, data)
			if err != nil {
				return err
			}
			return uc.repo.SetShipped(ctx, tenantID, orderID, input.TransporterID, input.TrackingCode, artifactRef, now)
		})
	})
	if err != nil {
		return nil, err
	}

	uc.logger.Info("order shipped",
		zap.String("tenant_id", tenantID),
		zap.String("order_id", orderID),
		zap.String("transporter_id", input.TransporterID),
	)
	return uc.repo.GetByID(ctx, tenantID, orderID)
}

func (uc *fulfillmentUseCase) Deliver(ctx context.Context, tenantID, orderID, actorID string) (*model.FulfillmentOrder, error) {
	err := uc.withOrderLock(ctx, tenantID, orderID, func() error {
		return uc.txm.WithinTx(ctx, func(ctx context.Context) error {
			return uc.repo.SetDelivered(ctx, tenantID, orderID, model.OrderStateDelivered, time.Now())
		})
	})
	if err != nil {
		return nil, err
	}
	return uc.repo.GetByID(ctx, tenantID, orderID)
}

func (uc *fulfillmentUseCase) DeliverPartial(ctx context.Context, tenantID, orderID, actorID string, lines []dto.PartialDeliveryLine) (*model.FulfillmentOrder, error) {
	if len(lines) == 0 {
		return nil, apperrors.Validation("lines", "at least one line required")
	}

	var returnLines []model.ReturnLine
	err := uc.withOrderLock(ctx, tenantID, orderID, func() error {
		order, err := uc.repo.GetByID(ctx, tenantID, orderID)
		if err != nil {
			return err
		}
		if order.State != model.OrderStateShipped {
			return apperrors.InvalidState("order", string(order.State), "deliver partial")
		}

		lineIndex := map[string]*model.OrderLine{}
		for i := range order.Lines {
			lineIndex[order.Lines[i].ID] = &order.Lines[i]
		}

		for _, in := range lines {
			line, ok := lineIndex[in.OrderLineID]
			if !ok {
				return apperrors.NotFound("order line", in.OrderLineID)
			}
			if in.AcceptedQuantity < 0 || in.AcceptedQuantity > line.OrderedQuantity {
				return apperrors.Validation("accepted_quantity", "must be between 0 and the shipped quantity")
			}
			rejected := line.OrderedQuantity - in.AcceptedQuantity
			if rejected == 0 {
				continue
			}
			if in.Reason == "" {
				return apperrors.Validation("reason", fmt.Sprintf("required for rejected quantity on line %d", line.LineNo))
			}
			returnLines = append(returnLines, model.ReturnLine{
				ID:               uuid.New().String(),
				OrderLineID:      line.ID,
				ProductID:        line.ProductID,
				RejectedQuantity: rejected,
				Reason:           in.Reason,
			})
		}
		if len(returnLines) == 0 {
			return apperrors.Validation("lines", "nothing rejected; use deliver instead")
		}

		now := time.Now()
		return uc.txm.WithinTx(ctx, func(ctx context.Context) error {
			// The compensating return is born in the same transaction that
			// terminates the order.
			number, err := uc.sequences.NextDocumentNumber(ctx, tenantID, model.DocTypeReturn, now)
			if err != nil {
				return err
			}
			ret := &model.ReturnOrder{
				BaseModel:      model.BaseModel{ID: uuid.New().String(), CreatedAt: now, UpdatedAt: now},
				TenantID:       tenantID,
				OrderID:        order.ID,
				DocumentNumber: number,
				CreatedBy:      actorID,
				Lines:          returnLines,
			}
			for i := range ret.Lines {
				ret.Lines[i].ReturnID = ret.ID
			}
			if err := uc.repo.CreateReturn(ctx, ret); err != nil {
				return err
			}
			return uc.repo.SetDelivered(ctx, tenantID, orderID, model.OrderStatePartiallyDelivered, now)
		})
	})
	if err != nil {
		return nil, err
	}

	uc.logger.Info("order partially delivered",
		zap.String("tenant_id", tenantID),
		zap.String("order_id", orderID),
		zap.Int("return_lines", len(returnLines)),
	)
	return uc.repo.GetByID(ctx, tenantID, orderID)
}

func (uc *fulfillmentUseCase) Cancel(ctx context.Context, tenantID, orderID, actorID string) (*model.FulfillmentOrder, error) {
	err := uc.withOrderLock(ctx, tenantID, orderID, func() error {
		order, err := uc.repo.GetByID(ctx, tenantID, orderID)
		if err != nil {
			return err
		}
		switch order.State {
		case model.OrderStateCreated:
			return uc.txm.WithinTx(ctx, func(ctx context.Context) error {
				return uc.repo.UpdateStateFrom(ctx, tenantID, orderID, model.OrderStateCreated, model.OrderStateCancelled)
			})
		case model.OrderStateAllocated:
			// Release every unpicked reservation, then park the order.
			return uc.txm.WithinTx(ctx, func(ctx context.Context) error {
				for _, line := range order.Lines {
					for _, alloc := range line.Allocations {
						remaining := alloc.AllocatedQuantity - alloc.PickedQuantity
						if remaining <= 0 {
							continue
						}
						if err := uc.engine.Release(ctx, tenantID, alloc.PositionID, remaining); err != nil {
							return err
						}
					}
				}
				if err := uc.repo.DeleteAllocationsForOrder(ctx, orderID); err != nil {
					return err
				}
				return uc.repo.UpdateStateFrom(ctx, tenantID, orderID, model.OrderStateAllocated, model.OrderStateCancelled)
			})
		default:
			return apperrors.InvalidState("order", string(order.State), "cancel")
		}
	})
	if err != nil {
		return nil, err
	}
	return uc.repo.GetByID(ctx, tenantID, orderID)
}

func (uc *fulfillmentUseCase) buildShipmentDocument(ctx context.Context, order *model.FulfillmentOrder, artifactNumber, actorID string, at time.Time) (*document.Data, error) {
	productIDs := make([]string, 0, len(order.Lines))
	for _, line := range order.Lines {
		productIDs = append(productIDs, line.ProductID)
	}
	products, err := uc.catalog.GetProducts(ctx, order.TenantID, productIDs)
	if err != nil {
		return nil, err
	}

	data := &document.Data{
		TenantID:       order.TenantID,
		DocumentType:   model.DocTypeDispatch,
		DocumentNumber: artifactNumber,
		Title:          fmt.Sprintf("dispatch %s", order.OrderNumber),
		IssuedAt:       at,
		IssuedBy:       actorID,
		Header: map[string]string{
			"order_number": order.OrderNumber,
		},
	}
	for _, line := range order.Lines {
		dl := document.Line{
			LineNo:   line.LineNo,
			Quantity: line.PickedQuantity,
		}
		if p, ok := products[line.ProductID]; ok {
			dl.ProductSKU = p.SKU
			dl.ProductName = p.Name
		}
		data.Lines = append(data.Lines, dl)
	}
	return data, nil
}
