package services

import (
	"testing"

	"cafe-backend/models"
)

func TestSplit_PartialQuantity(t *testing.T) {
	f := newFixture(t)
	f.seat(f.t1, qty(f.coffee, 3))

	res, err := f.engine.Split(f.ctx, f.actor, SplitRequest{
		FromID: f.t1, ToID: f.t2, Items: []ItemQuantity{qty(f.coffee, 2)},
	})
	if err != nil {
		t.Fatalf("Split: %v", err)
	}

	if got := f.quantities(f.t1)[f.coffee.ID]; got != 1 {
		t.Errorf("T1 coffee = %d, want 1", got)
	}
	if got := f.quantities(f.t2)[f.coffee.ID]; got != 2 {
		t.Errorf("T2 coffee = %d, want 2", got)
	}
	if !res.From.Invoice.Total.Equal(dec("20")) {
		t.Errorf("T1 total = %s, want 20", res.From.Invoice.Total)
	}
	if !res.To.Invoice.Total.Equal(dec("40")) {
		t.Errorf("T2 total = %s, want 40", res.To.Invoice.Total)
	}
	if !f.invoice(res.From.Invoice.ID).Total.Equal(dec("20")) || !f.invoice(res.To.Invoice.ID).Total.Equal(dec("40")) {
		t.Errorf("stored totals not recomputed")
	}
	wantStatus(t, f, f.t1, models.TableOccupied)
	wantStatus(t, f, f.t2, models.TableOccupied)
	f.checkInvariants()
}

func TestSplit_WholeOrderFreesSource(t *testing.T) {
	f := newFixture(t)
	src := f.seat(f.t1, qty(f.coffee, 1), qty(f.tea, 2))

	_, err := f.engine.Split(f.ctx, f.actor, SplitRequest{
		FromID: f.t1, ToID: f.t2,
		Items: []ItemQuantity{qty(f.coffee, 1), qty(f.tea, 2), qty(f.cake, 0)},
	})
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	wantStatus(t, f, f.t1, models.TableAvailable)
	wantStatus(t, f, f.t2, models.TableOccupied)
	if !f.invoice(src.Invoice.ID).IsDeleted {
		t.Errorf("emptied source invoice should be tombstoned")
	}
	if seats := f.activeReservations(src.Invoice.ID); len(seats) != 0 {
		t.Errorf("emptied source still has reservations")
	}
	q := f.quantities(f.t2)
	if q[f.coffee.ID] != 1 || q[f.tea.ID] != 2 || len(q) != 2 {
		t.Errorf("T2 quantities = %v", q)
	}
	f.checkInvariants()
}

func TestSplit_FoldsIntoExistingLine(t *testing.T) {
	f := newFixture(t)
	f.seat(f.t1, qty(f.coffee, 3))
	dst := f.seat(f.t2, qty(f.coffee, 1))

	res, err := f.engine.Split(f.ctx, f.actor, SplitRequest{
		FromID: f.t1, ToID: f.t2, Items: []ItemQuantity{qty(f.coffee, 2)},
	})
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if res.To.Invoice.ID != dst.Invoice.ID {
		t.Errorf("split should reuse the destination invoice")
	}
	if len(res.To.Lines) != 1 || res.To.Lines[0].Quantity != 3 {
		t.Errorf("destination lines = %+v", res.To.Lines)
	}
	f.checkInvariants()
}

func TestSplit_CarriesCustomerIdentity(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.AddItems(f.ctx, f.actor, AddItemsRequest{
		TableID:  f.t1,
		Items:    []ItemQuantity{qty(f.coffee, 2)},
		Customer: Customer{Name: "Alice", Phone: "0123456789"},
	})
	if err != nil {
		t.Fatal(err)
	}
	res, err := f.engine.Split(f.ctx, Actor{EmployeeID: f.ben.ID}, SplitRequest{
		FromID: f.t1, ToID: f.t2, Items: []ItemQuantity{qty(f.coffee, 1)},
	})
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	seats := f.activeReservations(res.To.Invoice.ID)
	if len(seats) != 1 || seats[0].CustomerName != "Alice" || seats[0].EmployeeID != f.ben.ID {
		t.Fatalf("destination seating = %+v", seats)
	}
}

func TestSplit_Rejections(t *testing.T) {
	tests := []struct {
		name  string
		setup func(f *fixture) SplitRequest
		want  Kind
	}{
		{name: "same table", want: KindValidation, setup: func(f *fixture) SplitRequest {
			return SplitRequest{FromID: f.t1, ToID: f.t1, Items: []ItemQuantity{qty(f.coffee, 1)}}
		}},
		{name: "nothing selected", want: KindValidation, setup: func(f *fixture) SplitRequest {
			return SplitRequest{FromID: f.t1, ToID: f.t2, Items: []ItemQuantity{qty(f.coffee, 0)}}
		}},
		{name: "negative quantity", want: KindValidation, setup: func(f *fixture) SplitRequest {
			return SplitRequest{FromID: f.t1, ToID: f.t2, Items: []ItemQuantity{qty(f.coffee, -1)}}
		}},
		{name: "duplicate item", want: KindValidation, setup: func(f *fixture) SplitRequest {
			return SplitRequest{FromID: f.t1, ToID: f.t2, Items: []ItemQuantity{qty(f.coffee, 1), qty(f.coffee, 1)}}
		}},
		{name: "more than active", want: KindInsufficientQuantity, setup: func(f *fixture) SplitRequest {
			return SplitRequest{FromID: f.t1, ToID: f.t2, Items: []ItemQuantity{qty(f.coffee, 4)}}
		}},
		{name: "item not on source", want: KindInsufficientQuantity, setup: func(f *fixture) SplitRequest {
			return SplitRequest{FromID: f.t1, ToID: f.t2, Items: []ItemQuantity{qty(f.coffee, 1), qty(f.cake, 1)}}
		}},
		{name: "reserved destination", want: KindIllegalTransition, setup: func(f *fixture) SplitRequest {
			if _, err := f.engine.Book(f.ctx, f.actor, BookRequest{TableID: f.t2,
				Customer: Customer{Name: "Bob", Phone: "01234567890"}, Date: "2026-03-12", Time: "19:30"}); err != nil {
				f.t.Fatal(err)
			}
			return SplitRequest{FromID: f.t1, ToID: f.t2, Items: []ItemQuantity{qty(f.coffee, 1)}}
		}},
		{name: "source not occupied", want: KindIllegalTransition, setup: func(f *fixture) SplitRequest {
			return SplitRequest{FromID: f.t3, ToID: f.t2, Items: []ItemQuantity{qty(f.coffee, 1)}}
		}},
		{name: "unknown destination", want: KindNotFound, setup: func(f *fixture) SplitRequest {
			return SplitRequest{FromID: f.t1, ToID: 999, Items: []ItemQuantity{qty(f.coffee, 1)}}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.seat(f.t1, qty(f.coffee, 3))
			req := tt.setup(f)

			_, err := f.engine.Split(f.ctx, f.actor, req)
			wantKind(t, err, tt.want)
			if got := f.quantities(f.t1)[f.coffee.ID]; got != 3 {
				t.Errorf("source coffee after rejected split = %d, want 3", got)
			}
			if req.ToID != 999 && req.ToID != f.t1 && f.table(req.ToID).Status == models.TableOccupied {
				t.Errorf("destination became occupied on a rejected split")
			}
			f.checkInvariants()
		})
	}
}
