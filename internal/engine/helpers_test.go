package engine

import (
	"time"

	"salesboard/internal/models"
)

func str(s string) models.Value  { return models.StringValue(s) }
func num(f float64) models.Value { return models.NumberValue(f) }
func null() models.Value         { return models.NullValue() }
func date(s string) models.Value {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return models.DateValue(d)
}

func mustDay(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

func salesTable() *models.Table {
	return models.MustTable(
		[]string{ColClient, ColSalesperson, ColPayment, ColIssued, ColValue, ColOperation},
		[][]models.Value{
			{str("Acme"), str("2"), str("Boleto"), date("2024-01-10"), num(100), str("VENDA MERCADORIA")},
			{str("Beta"), str("5"), str("Pix"), date("2024-01-11"), num(50), str("VENDA MERCADORIA")},
			{str("Acme"), str("6"), str("Cancelada"), date("2024-01-12"), num(70), str("DEVOLUCAO")},
			{str("Gama"), str("9"), str("Boleto"), null(), num(30), str("VENDA MERCADORIA")},
			{str("Beta"), str("2"), str("Pix"), date("2024-01-10"), str("n/a"), str("VENDA MERCADORIA")},
		},
	)
}
