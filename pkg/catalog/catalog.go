package catalog

import (
	"fmt"
	"strings"
)

// Product identifiers of the built-in catalog.
const (
	ProductKPR   = "PROD-KPR"
	ProductKMG   = "PROD-KMG"
	ProductMikro = "PROD-MIKRO"
)

// Catalog is a read-only product lookup.
type Catalog struct {
	order    []string
	products map[string]Product
}

// New builds a catalog from the given products, preserving their order.
// Product IDs must be non-empty and unique.
func New(products []Product) (*Catalog, error) {
	c := &Catalog{products: make(map[string]Product, len(products))}
	for _, p := range products {
		id := strings.TrimSpace(p.ID)
		if id == "" {
			return nil, fmt.Errorf("product %q has no id", p.Name)
		}
		if _, dup := c.products[id]; dup {
			return nil, fmt.Errorf("duplicate product id %s", id)
		}
		p.ID = id
		c.order = append(c.order, id)
		c.products[id] = p.Clone()
	}
	return c, nil
}

// Default returns the catalog shipped with the portal.
func Default() *Catalog {
	c, err := New(DefaultProducts())
	if err != nil {
		panic(fmt.Sprintf("invalid built-in catalog: %v", err))
	}
	return c
}

// Lookup returns a copy of the product with the given id.
func (c *Catalog) Lookup(id string) (Product, bool) {
	p, ok := c.products[strings.TrimSpace(id)]
	if !ok {
		return Product{}, false
	}
	return p.Clone(), true
}

// All returns copies of every product in catalog order.
func (c *Catalog) All() []Product {
	out := make([]Product, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.products[id].Clone())
	}
	return out
}

// Len returns the number of products.
func (c *Catalog) Len() int {
	return len(c.order)
}

// DefaultProducts lists the KPR, KMG and Mikro products.
func DefaultProducts() []Product {
	return []Product{
		{
			ID:          ProductKPR,
			Name:        "KPR - Kredit Pemilikan Rumah",
			Rate:        "4.5% eff.p.a",
			Description: "Solusi pembiayaan untuk memiliki rumah idaman dengan bunga kompetitif dan tenor panjang. Proses mudah dengan cicilan terjangkau hingga 25 tahun.",
			Constraints: Constraints{
				MinIncome:    8000000,
				TenorUnit:    TenorYear,
				TenorOptions: []int{5, 10, 15, 20, 25},
			},
			Calculation: &Calculation{
				Type:      CalculationEffective,
				Rate:      4.5,
				MinAmount: 50000000,
				MaxAmount: 5000000000,
			},
			SimulatorConfig: &SimulatorConfig{
				Fields: FieldConfig{
					Required: []string{FieldLoanAmount, FieldTenor},
					KPR:      []string{FieldPurpose, FieldCollateralType, FieldDownPayment, FieldHousePrice},
				},
				Options: map[string][]Option{
					FieldPurpose: {
						{Value: "beli-baru", Label: "Beli Rumah Baru"},
						{Value: "beli-bekas", Label: "Beli Rumah Bekas"},
						{Value: "renovasi", Label: "Renovasi Rumah"},
						{Value: "refinancing", Label: "Refinancing"},
					},
					FieldCollateralType: {
						{Value: "shm", Label: "Sertifikat Hak Milik (SHM)"},
						{Value: "shgb", Label: "Sertifikat Hak Guna Bangunan (SHGB)"},
						{Value: "girik", Label: "Girik / Petok D"},
						{Value: "ajb", Label: "Akta Jual Beli (AJB)"},
					},
					FieldDownPayment: {
						{Value: "10", Label: "10%"},
						{Value: "15", Label: "15%"},
						{Value: "20", Label: "20%"},
						{Value: "25", Label: "25%"},
						{Value: "30", Label: "30%"},
					},
				},
			},
		},
		{
			ID:          ProductKMG,
			Name:        "KMG - Kredit Multi Guna",
			Rate:        "0.8% flat/bln",
			Description: "Pembiayaan fleksibel untuk berbagai kebutuhan seperti renovasi, pendidikan, atau keperluan mendesak lainnya. Proses cepat dengan suku bunga kompetitif.",
			Constraints: Constraints{
				MinIncome:    3000000,
				TenorUnit:    TenorMonth,
				TenorOptions: []int{12, 24, 36, 48, 60},
			},
			Calculation: &Calculation{
				Type:      CalculationFlat,
				Rate:      0.8,
				MinAmount: 10000000,
				MaxAmount: 500000000,
			},
			SimulatorConfig: &SimulatorConfig{
				Fields: FieldConfig{
					Required: []string{FieldLoanAmount, FieldTenor},
					KMG:      []string{FieldLoanPurpose},
				},
				Options: map[string][]Option{
					FieldLoanPurpose: {
						{Value: "renovasi", Label: "Renovasi Rumah"},
						{Value: "pendidikan", Label: "Pendidikan"},
						{Value: "kesehatan", Label: "Kesehatan"},
						{Value: "pernikahan", Label: "Pernikahan"},
						{Value: "liburan", Label: "Liburan"},
						{Value: "lainnya", Label: "Kebutuhan Lainnya"},
					},
				},
			},
		},
		{
			ID:          ProductMikro,
			Name:        "Mikro - Kredit Usaha Mikro",
			Rate:        "0.5% flat/bln",
			Description: "Pembiayaan modal usaha untuk pengembangan UMKM dengan bunga ringan dan persyaratan mudah. Dukung pertumbuhan bisnis Anda bersama Bank Jakarta.",
			Constraints: Constraints{
				MinIncome:    2000000,
				TenorUnit:    TenorMonth,
				TenorOptions: []int{6, 12, 18, 24},
			},
			Calculation: &Calculation{
				Type:      CalculationFlat,
				Rate:      0.5,
				MinAmount: 5000000,
				MaxAmount: 100000000,
			},
			SimulatorConfig: &SimulatorConfig{
				Fields: FieldConfig{
					Required: []string{FieldLoanAmount, FieldTenor},
					Mikro:    []string{FieldBusinessType},
				},
				Options: map[string][]Option{
					FieldBusinessType: {
						{Value: "perdagangan", Label: "Perdagangan"},
						{Value: "jasa", Label: "Jasa"},
						{Value: "manufaktur", Label: "Manufaktur"},
						{Value: "pertanian", Label: "Pertanian"},
						{Value: "peternakan", Label: "Peternakan"},
						{Value: "perikanan", Label: "Perikanan"},
						{Value: "lainnya", Label: "Lainnya"},
					},
				},
			},
		},
	}
}
