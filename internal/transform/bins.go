package transform

import "math"

// Etykiety kategorii. Wszystkie przedziały są lewostronnie otwarte,
// prawostronnie domknięte: (lower, upper].
const (
	SalePequena   = "Pequeña"
	SaleMediana   = "Mediana"
	SaleGrande    = "Grande"
	SaleMuyGrande = "Muy Grande"

	PerfBajo    = "Bajo"
	PerfMedio   = "Medio"
	PerfAlto    = "Alto"
	PerfMuyAlto = "Muy Alto"

	PeriodMadrugada = "Madrugada"
	PeriodManana    = "Mañana"
	PeriodTarde     = "Tarde"
	PeriodNoche     = "Noche"

	StockBajo  = "BAJO"
	StockMedio = "MEDIO"
	StockAlto  = "ALTO"

	PagoInmediato = "Inmediato"
	PagoDiferido  = "Diferido"
	PagoOtro      = "Otro"

	// DiasStockSinVentas – wartość dias_stock, gdy nie da się policzyć.
	DiasStockSinVentas = 999.0
)

type bin struct {
	upper float64
	label string
}

// cut przypisuje v do pierwszego przedziału (prev, upper]; lower jest
// wyłączne. Poza zakresem (lub NaN) zwraca "".
func cut(v, lower float64, bins []bin) string {
	if math.IsNaN(v) || v <= lower {
		return ""
	}
	for _, b := range bins {
		if v <= b.upper {
			return b.label
		}
	}
	return ""
}

var saleSizeBins = []bin{
	{200, SalePequena},
	{500, SaleMediana},
	{1000, SaleGrande},
	{math.Inf(1), SaleMuyGrande},
}

var performanceBins = []bin{
	{0.1, PerfBajo},
	{0.5, PerfMedio},
	{1.0, PerfAlto},
	{math.Inf(1), PerfMuyAlto},
}

var periodBins = []bin{
	{6, PeriodMadrugada},
	{12, PeriodManana},
	{18, PeriodTarde},
	{24, PeriodNoche},
}

// SaleSize kategoryzuje total_factura; brak lub <= 0 -> "".
func SaleSize(total *float64) string {
	if total == nil {
		return ""
	}
	return cut(*total, 0, saleSizeBins)
}

// PerformanceTier – dolny przedział nieograniczony od dołu.
func PerformanceTier(rotation float64) string {
	return cut(rotation, math.Inf(-1), performanceBins)
}

// DayPeriod: 0-6 Madrugada, 7-12 Mañana, 13-18 Tarde, 19-23 Noche.
func DayPeriod(hour int) string {
	return cut(float64(hour), -1, periodBins)
}

// StockLevel jak CASE w zapytaniu o inventario.
func StockLevel(current, minimum float64) string {
	switch {
	case current <= minimum:
		return StockBajo
	case current <= minimum*2:
		return StockMedio
	default:
		return StockAlto
	}
}

var paymentTypes = map[string]string{
	"Efectivo":      PagoInmediato,
	"Transferencia": PagoInmediato,
	"Cheque":        PagoDiferido,
	"Crédito":       PagoDiferido,
}

// PaymentType mapuje metodo_pago; wszystko inne -> Otro.
func PaymentType(method string) string {
	if t, ok := paymentTypes[method]; ok {
		return t
	}
	return PagoOtro
}
