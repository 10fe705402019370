package weee

// Category is one of the six regulatory WEEE classes.
type Category struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Categories is the fixed 1-indexed WEEE enumeration.
var Categories = []Category{
	{ID: 1, Name: "Equipamentos de troca de temperatura"},
	{ID: 2, Name: "Ecrãs/Monitores (>100 cm²)"},
	{ID: 3, Name: "Lâmpadas"},
	{ID: 4, Name: "Grandes (dimensão > 50cm)"},
	{ID: 5, Name: "Pequenos (dimensão <= 50cm)"},
	{ID: 6, Name: "TIC pequena dimensão (<= 50cm)"},
}

func CategoryName(id int) string {
	for _, c := range Categories {
		if c.ID == id {
			return c.Name
		}
	}
	return ""
}

// preferenceOrder breaks score ties: temperature exchange and screens are
// disambiguated before the generic large/small buckets.
var preferenceOrder = []int{1, 2, 3, 6, 4, 5}

// keywords per category, PT/EN, matched as case-insensitive substrings.
var keywords = map[int][]string{
	1: {"refrigerador", "refrigerator", "geladeira", "frigorífico", "freezer", "congelador", "ar-condicionado", "ar condicionado", "condicionador de ar", "bomba de calor", "heat pump", "air conditioner", "fridge", "cooler"},
	2: {"televisor", "tv", "smart tv", "monitor", "ecrã", "tela", "laptop", "notebook", "tablet", "display", "screen"},
	3: {"lâmpada", "lampada", "lamp", "bulbo", "light bulb", "fluorescente", "led", "incandescente", "tube", "tubo"},
	4: {"máquina de lavar", "lavadora", "secadora", "lava-louças", "lava louças", "dishwasher", "stove", "fogão", "oven", "forno", "range", "geladeira grande"},
	5: {"aspirador", "micro-ondas", "microondas", "torradeira", "ferro de passar", "kettle", "chaleira", "liquidificador", "blender", "mixer", "câmera", "camera"},
	6: {"celular", "telefone", "smartphone", "phone", "pc pequeno", "mini pc", "router", "roteador", "gps", "calculadora", "calculator", "modem", "printer", "impressora", "tablet", "notebook", "laptop"},
}

// nonEEEKeywords flag content that is clearly not electronic waste
// (people, animals, vehicles, nature, food, furniture).
var nonEEEKeywords = []string{
	"pessoa", "person", "homem", "mulher", "people", "boy", "girl",
	"dog", "cachorro", "cat", "gato", "animal", "bird", "passaro", "cavalo",
	"árvore", "tree", "plant", "planta", "flor", "flower", "grass", "grama", "landscape", "paisagem", "sky", "céu", "beach", "praia", "ocean", "mar", "montanha",
	"car", "carro", "bike", "bicycle", "moto", "motorcycle", "truck", "caminhão", "bus", "ônibus",
	"food", "comida", "fruta", "fruit", "vegetal", "vegetable", "drink", "bebida",
	"house", "casa", "building", "prédio", "rua", "street", "wall", "parede", "sofa", "couch", "table", "mesa", "chair", "cadeira", "book", "livro",
}

// parentDeviceKeywords mark detections that are whole devices; their
// overlapping subparts get suppressed.
var parentDeviceKeywords = []string{
	"laptop", "notebook", "computador", "pc", "desktop", "monitor", "televisor", "tv", "tablet",
	"telefone", "celular", "smartphone", "impressora", "printer", "roteador", "router",
	"geladeira", "refrigerador", "frigorífico", "freezer", "forno", "micro-ondas", "lava-louças", "máquina de lavar", "secadora",
	"ar-condicionado", "bomba de calor",
}

// subpartKeywords mark regions that usually duplicate a larger device.
var subpartKeywords = []string{
	"keyboard", "teclado", "trackpad", "touchpad", "screen", "display", "panel", "painel", "bezel", "stand",
	"mouse", "speaker", "alto-falante", "alto falante", "cable", "cables", "wire", "fio", "cabos", "cabo",
}
