package domain

import "math"

// SlippageModel ajusta un precio de entrada crudo con fee + spread + impacto
// proporcional al tamaño. Los dos modelos estándar están en RealisticSlippage
// y ConservativeSlippage; ambos son ajustables desde configuración.
type SlippageModel struct {
	Base        float64 // fricción base (taker fee + cruce de spread)
	PerThousand float64 // impacto por cada $1000 de tamaño
	Cap         float64 // slippage total máximo
}

// RealisticSlippage modela condiciones reales del venue: 0.01% taker fee +
// 0.05% de spread, 0.01% por $1000, cap 2%.
var RealisticSlippage = SlippageModel{Base: 0.0006, PerThousand: 0.0001, Cap: 0.02}

// ConservativeSlippage es el modo stress-test con ~50x de margen de seguridad.
var ConservativeSlippage = SlippageModel{Base: 0.005, PerThousand: 0.0005, Cap: 0.10}

// Apply devuelve el precio ajustado por slippage, clamp a 0.99.
func (m SlippageModel) Apply(price, sizeUSD float64) float64 {
	slip := m.Base + (sizeUSD/1000)*m.PerThousand
	if slip > m.Cap {
		slip = m.Cap
	}
	return math.Min(price*(1+slip), 0.99)
}

// ROI calcula el retorno porcentual de una posición ajustando la entrada por
// slippage. payout es 1.0 (win) o 0.0 (loss), o un precio de salida para
// cierres anticipados. Entradas ajustadas degeneradas (>=1.0 o <=0.01)
// devuelven 0 en lugar de propagar un artefacto de división.
func ROI(payout, rawEntry, sizeUSD float64, m SlippageModel) float64 {
	adjusted := m.Apply(rawEntry, sizeUSD)
	if adjusted >= 1.0 || adjusted <= 0.01 {
		return 0
	}
	return (payout - adjusted) / adjusted * 100
}

// SideROI calcula el ROI teniendo en cuenta el lado del trade. Un SELL es
// económicamente un BUY del outcome complementario: se evalúa sobre la pata
// opuesta (entry' = 1-entry, payout' = 1-payout).
func SideROI(side string, payout, entry, sizeUSD float64, m SlippageModel) float64 {
	if side == SideSell {
		return ROI(1-payout, 1-entry, sizeUSD, m)
	}
	return ROI(payout, entry, sizeUSD, m)
}
