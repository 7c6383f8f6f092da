package trade

import (
	"context"
	"math/rand"
	"reflect"
	"testing"

	"kline_trader/internal/models"
)

func newLongOnly(ex *fakeExchange) *Machine {
	bm := NewBracketManager(ex, btcRules(), defaultRates(), nil)
	return NewMachine(LongOnly{TakeProfit: true}, bm, ex, d("0.00001"), nil)
}

func TestLongOnlyHoldBuyHoldSell(t *testing.T) {
	ex := newFakeExchange()
	m := newLongOnly(ex)
	ctx := context.Background()

	var transitions []models.PositionStatus
	for _, sig := range []models.Signal{models.SignalHold, models.SignalBuy, models.SignalHold, models.SignalSell} {
		out, err := m.OnSignal(ctx, sig)
		if err != nil {
			t.Fatalf("%s: %v", sig, err)
		}
		if out.Transitioned() {
			transitions = append(transitions, out.To)
		}
	}

	want := []string{
		"market BUY 0.00017",
		"create STOP_LOSS_LIMIT",
		"create TAKE_PROFIT_LIMIT",
		"cancel 2",
		"cancel 3",
		"market SELL 0.00017",
	}
	if got := ex.orderCalls(); !reflect.DeepEqual(got, want) {
		t.Fatalf("calls:\n got %v\nwant %v", got, want)
	}
	if !reflect.DeepEqual(transitions, []models.PositionStatus{models.StatusLong, models.StatusEmpty}) {
		t.Fatalf("transitions %v", transitions)
	}
	if p := m.Position(); p.Status != models.StatusEmpty || len(p.BracketIDs()) != 0 {
		t.Fatalf("final position %+v", p)
	}
}

func TestEntryUsesFillQuantityAndPrice(t *testing.T) {
	ex := newFakeExchange()
	m := newLongOnly(ex)

	if _, err := m.OnSignal(context.Background(), models.SignalBuy); err != nil {
		t.Fatal(err)
	}
	p := m.Position()
	if p.Status != models.StatusLong || !p.Quantity.Equal(d("0.00017")) || !p.AverageEntryPrice.Equal(d("30000")) {
		t.Fatalf("position %+v", p)
	}
	if p.StopLossOrderID == 0 || p.TakeProfitOrderID == 0 {
		t.Fatalf("brackets not recorded: %+v", p)
	}
}

func TestEntriesMinusExitsStaysBinary(t *testing.T) {
	for _, policy := range []Policy{LongOnly{TakeProfit: true}, LongShort{}} {
		ex := newFakeExchange()
		bm := NewBracketManager(ex, btcRules(), defaultRates(), nil)
		m := NewMachine(policy, bm, ex, d("0.001"), nil)

		rnd := rand.New(rand.NewSource(7))
		signals := []models.Signal{models.SignalBuy, models.SignalSell, models.SignalHold}
		open := 0
		for i := 0; i < 300; i++ {
			out, err := m.OnSignal(context.Background(), signals[rnd.Intn(len(signals))])
			if err != nil {
				t.Fatalf("%s tick %d: %v", policy.Name(), i, err)
			}
			switch {
			case out.From == models.StatusEmpty && out.To != models.StatusEmpty:
				open++
			case out.From != models.StatusEmpty && out.To == models.StatusEmpty:
				open--
			}
			if open != 0 && open != 1 {
				t.Fatalf("%s tick %d: entries-exits=%d", policy.Name(), i, open)
			}
		}
	}
}

func TestCancelStrictlyBeforeExit(t *testing.T) {
	ex := newFakeExchange()
	m := newLongOnly(ex)
	ctx := context.Background()

	_, _ = m.OnSignal(ctx, models.SignalBuy)
	ex.calls = nil
	if _, err := m.OnSignal(ctx, models.SignalSell); err != nil {
		t.Fatal(err)
	}

	lastCancel, exit := -1, -1
	for i, c := range ex.orderCalls() {
		switch {
		case len(c) > 6 && c[:6] == "cancel":
			lastCancel = i
		case c == "market SELL 0.00017":
			exit = i
		}
	}
	if lastCancel < 0 || exit < 0 || lastCancel > exit {
		t.Fatalf("cancel must precede exit: %v", ex.orderCalls())
	}
}

func TestNonFilledEntryKeepsEmpty(t *testing.T) {
	ex := newFakeExchange()
	ex.marketStatus = models.OrderStatusNew
	m := newLongOnly(ex)

	out, err := m.OnSignal(context.Background(), models.SignalBuy)
	if err != nil {
		t.Fatal(err)
	}
	if out.Transitioned() || m.Position().Status != models.StatusEmpty {
		t.Fatalf("position changed on NEW order: %+v", m.Position())
	}
	if len(out.Orders) != 1 {
		t.Fatalf("order must still be reported, got %d", len(out.Orders))
	}
	for _, c := range ex.calls {
		if c == "create STOP_LOSS_LIMIT" {
			t.Fatal("brackets attached without a fill")
		}
	}
}

func TestNonFilledExitReattachesBrackets(t *testing.T) {
	ex := newFakeExchange()
	m := newLongOnly(ex)
	ctx := context.Background()

	if _, err := m.OnSignal(ctx, models.SignalBuy); err != nil {
		t.Fatal(err)
	}
	ex.marketStatus = models.OrderStatusNew
	ex.calls = nil

	out, err := m.OnSignal(ctx, models.SignalSell)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"cancel 2", "cancel 3", "market SELL 0.00017", "create STOP_LOSS_LIMIT", "create TAKE_PROFIT_LIMIT"}
	if got := ex.orderCalls(); !reflect.DeepEqual(got, want) {
		t.Fatalf("calls=%v want %v", got, want)
	}
	pos := m.Position()
	if pos.Status != models.StatusLong || out.Transitioned() {
		t.Fatalf("position must stay LONG: %+v", pos)
	}
	if pos.StopLossOrderID == 0 || pos.TakeProfitOrderID == 0 || pos.StopLossOrderID == 2 {
		t.Fatalf("brackets not re-attached: %+v", pos)
	}
	if len(out.Alerts) != 2 {
		t.Fatalf("alerts=%v", out.Alerts)
	}
}

func TestNonFilledEntryRaisesAlert(t *testing.T) {
	ex := newFakeExchange()
	ex.marketStatus = models.OrderStatusNew
	m := newLongOnly(ex)

	out, err := m.OnSignal(context.Background(), models.SignalBuy)
	if err != nil {
		t.Fatal(err)
	}
	if len(out.Alerts) != 1 {
		t.Fatalf("alerts=%v", out.Alerts)
	}
}

func TestRejectedEntryIsFatal(t *testing.T) {
	ex := newFakeExchange()
	ex.marketStatus = models.OrderStatusExpired
	m := newLongOnly(ex)

	_, err := m.OnSignal(context.Background(), models.SignalBuy)
	if models.KindOf(err) != models.KindExchangeRejected {
		t.Fatalf("kind=%v", models.KindOf(err))
	}
	if m.Position().Status != models.StatusEmpty {
		t.Fatal("rejected entry must not open a position")
	}
}

func TestFilledBracketClosesPosition(t *testing.T) {
	ex := newFakeExchange()
	m := newLongOnly(ex)
	ctx := context.Background()

	_, _ = m.OnSignal(ctx, models.SignalBuy)
	sl := m.Position().StopLossOrderID
	o := ex.orders[sl]
	o.Status = models.OrderStatusFilled
	ex.orders[sl] = o
	ex.calls = nil

	out, err := m.OnSignal(ctx, models.SignalHold)
	if err != nil {
		t.Fatal(err)
	}
	if out.To != models.StatusEmpty || m.Position().Status != models.StatusEmpty {
		t.Fatalf("position not closed: %+v", m.Position())
	}
	if len(out.Orders) != 1 || out.Orders[0].OrderID != sl {
		t.Fatalf("filled leg not reported: %+v", out.Orders)
	}
	for _, c := range ex.calls {
		if c == "market SELL 0.00017" {
			t.Fatal("exit order sent for a position the exchange already closed")
		}
	}
	tp := ex.orders[sl+1]
	if tp.Status != models.OrderStatusCanceled {
		t.Fatalf("sibling leg status %s", tp.Status)
	}
}

func TestLongShortSymmetric(t *testing.T) {
	ex := newFakeExchange()
	bm := NewBracketManager(ex, btcRules(), defaultRates(), nil)
	m := NewMachine(LongShort{}, bm, ex, d("0.001"), nil)
	ctx := context.Background()

	out, _ := m.OnSignal(ctx, models.SignalSell)
	if out.To != models.StatusShort {
		t.Fatalf("SELL from EMPTY -> %s", out.To)
	}
	out, _ = m.OnSignal(ctx, models.SignalSell)
	if out.Transitioned() {
		t.Fatal("no averaging into SHORT")
	}
	out, _ = m.OnSignal(ctx, models.SignalBuy)
	if out.To != models.StatusEmpty {
		t.Fatalf("BUY from SHORT -> %s", out.To)
	}

	want := []string{"market SELL 0.001", "market BUY 0.001"}
	if got := ex.orderCalls(); !reflect.DeepEqual(got, want) {
		t.Fatalf("calls %v", got)
	}
}

func TestRestoreFromOpenBrackets(t *testing.T) {
	ex := newFakeExchange()
	bm := NewBracketManager(ex, btcRules(), defaultRates(), nil)
	ctx := context.Background()

	br, err := bm.AttachBrackets(ctx, models.StatusLong, d("30000"), d("0.002"), Legs{StopLoss: true, TakeProfit: true})
	if err != nil {
		t.Fatal(err)
	}
	ex.trades = []models.Trade{
		{Qty: d("0.001"), QuoteQty: d("29"), IsBuyer: true},
		{Qty: d("0.001"), QuoteQty: d("30"), IsBuyer: true},
		{Qty: d("0.001"), QuoteQty: d("32"), IsBuyer: false},
		{Qty: d("0.001"), QuoteQty: d("31"), IsBuyer: true},
	}

	m := NewMachine(LongOnly{TakeProfit: true}, bm, ex, d("0.001"), nil)
	if err := m.Restore(ctx, ex); err != nil {
		t.Fatal(err)
	}
	p := m.Position()
	if p.Status != models.StatusLong || !p.Quantity.Equal(d("0.002")) {
		t.Fatalf("restored %+v", p)
	}
	if p.StopLossOrderID != br.StopLossOrderID || p.TakeProfitOrderID != br.TakeProfitOrderID {
		t.Fatalf("bracket ids %+v vs %+v", p, br)
	}
	if !p.AverageEntryPrice.Equal(d("30500")) {
		t.Fatalf("avg=%s", p.AverageEntryPrice)
	}
}
