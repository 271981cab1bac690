package booking

import (
	"math"
	"time"

	"github.com/Leganyst/autoservice-booking/internal/model"
)

// Деньги считаем в копейках, чтобы сумма позиций совпадала с итогом точно.
func toCents(v float64) int64 {
	return int64(math.Round(v * 100))
}

func fromCents(c int64) float64 {
	return float64(c) / 100
}

// FinalPrice = price - price*discount/100, округлённая до копеек.
func FinalPrice(price, discount float64) (float64, error) {
	if price < 0 || math.IsNaN(price) || math.IsInf(price, 0) {
		return 0, Validationf("price", "must be a non-negative number")
	}
	if discount < 0 || discount > 100 || math.IsNaN(discount) {
		return 0, Validationf("discount", "must be between 0 and 100")
	}
	cents := toCents(price)
	off := int64(math.Round(float64(cents) * discount / 100))
	return fromCents(cents - off), nil
}

// ResolveCenterPrice выбирает цену услуги для центра: переопределение центра,
// если оно есть, иначе базовая цена без скидки.
func ResolveCenterPrice(svc *model.Service, override *model.ServicePricing) (model.CenterPrice, error) {
	p := model.CenterPrice{
		ServiceID:   svc.ID,
		ServiceName: svc.Name,
		BasePrice:   svc.BasePrice,
		IsAvailable: svc.IsActive,
		DurationMin: svc.EstimatedDurationMin,
	}
	if override != nil {
		p.BasePrice = override.Price
		p.Discount = override.Discount
		p.IsAvailable = svc.IsActive && override.IsAvailable
	}
	final, err := FinalPrice(p.BasePrice, p.Discount)
	if err != nil {
		return model.CenterPrice{}, err
	}
	p.FinalPrice = final
	return p, nil
}

// LineItemFromPrice фиксирует цену центра в позиции бронирования.
func LineItemFromPrice(p model.CenterPrice) (model.LineItem, error) {
	final, err := FinalPrice(p.BasePrice, p.Discount)
	if err != nil {
		return model.LineItem{}, err
	}
	return model.LineItem{
		ServiceID:   p.ServiceID,
		ServiceName: p.ServiceName,
		Price:       p.BasePrice,
		Discount:    p.Discount,
		FinalPrice:  final,
		DurationMin: p.DurationMin,
	}, nil
}

// TotalAmount суммирует FinalPrice всех позиций.
func TotalAmount(items []model.LineItem) float64 {
	var cents int64
	for _, it := range items {
		cents += toCents(it.FinalPrice)
	}
	return fromCents(cents)
}

// Duration считает суммарную плановую длительность работ. Не хранится, считается по позициям.
func Duration(b *model.Booking) time.Duration {
	var total int64
	for _, it := range b.LineItems {
		total += it.DurationMin
	}
	return time.Duration(total) * time.Minute
}

// RoundAmount округляет сумму до копеек.
func RoundAmount(v float64) float64 {
	return fromCents(toCents(v))
}

// AverageAmount возвращает средний чек, округлённый до копеек. Для count <= 0 ноль.
func AverageAmount(total float64, count int64) float64 {
	if count <= 0 {
		return 0
	}
	return fromCents(int64(math.Round(float64(toCents(total)) / float64(count))))
}
