package models

// Form defaults applied to blank fields before a project is persisted
const (
	DefaultImage = "/placeholder.svg?height=400&width=600"
	DefaultColor = "from-blue-500 to-cyan-500"
	// NoDemo is the demo value meaning the project has no public demo
	NoDemo = "#"

	MinProgress  = 0
	MaxProgress  = 100
	ProgressStep = 5
)

// Gradient is one entry of the fixed card palette
type Gradient struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Palette lists the gradients a project card may use
var Palette = []Gradient{
	{Value: "from-emerald-500 to-teal-500", Label: "Verde Esmeralda"},
	{Value: "from-blue-500 to-cyan-500", Label: "Azul Oceano"},
	{Value: "from-amber-500 to-orange-500", Label: "Laranja Vibrante"},
	{Value: "from-purple-500 to-pink-500", Label: "Roxo Místico"},
	{Value: "from-red-500 to-pink-500", Label: "Vermelho Paixão"},
	{Value: "from-yellow-500 to-amber-500", Label: "Amarelo Solar"},
	{Value: "from-indigo-500 to-purple-500", Label: "Índigo Real"},
	{Value: "from-green-500 to-emerald-500", Label: "Verde Natureza"},
}

// Categories are the suggestions offered by the admin form; category itself stays free text
var Categories = []string{
	"Sistema Web",
	"E-commerce",
	"Landing Page",
	"Dashboard",
	"Mobile App",
	"IoT & Monitoramento",
	"API & Backend",
	"Blog & CMS",
	"Portfolio",
	"Outro",
}

// IsPaletteColor reports whether color is one of the palette gradients
func IsPaletteColor(color string) bool {
	for _, g := range Palette {
		if g.Value == color {
			return true
		}
	}
	return false
}

// SeedProjects returns a fresh copy of the studio's default portfolio.
// It is used to seed empty storage, by reset, and as the last-resort list when loading fails.
func SeedProjects() []Project {
	return []Project{
		{
			ID:    "1",
			Title: "Sistema de Agendamento Médico",
			Description: "Plataforma completa para agendamento de consultas médicas com calendário interativo, " +
				"notificações automáticas e gestão de pacientes",
			Image:    DefaultImage,
			Tech:     []string{"TypeScript", "React", "TailwindCSS", "Node.js"},
			Color:    "from-emerald-500 to-teal-500",
			Demo:     NoDemo,
			Category: "Sistema Web",
			Features: []string{
				"TypeScript para tipagem segura",
				"CSS responsivo",
				"JavaScript para interatividade",
				"API RESTful",
			},
			Progress: 100,
		},
		{
			ID:    "2",
			Title: "WaterGuardian - Monitor de Consumo de Água IoT",
			Description: "Sistema completo de monitoramento em tempo real do consumo de água com sensores IoT, " +
				"dashboard interativo, alertas de vazamento e relatórios de economia desenvolvido com " +
				"TypeScript, CSS e JavaScript",
			Image:    "/images/waterguardian-screenshot.png",
			Tech:     []string{"TypeScript", "CSS Modules", "JavaScript", "WebSockets", "Chart.js"},
			Color:    "from-blue-500 to-cyan-500",
			Demo:     "https://waterguardian.vercel.app/",
			Category: "IoT & Monitoramento",
			Features: []string{
				"Dashboard em tempo real",
				"Sensores IoT integrados",
				"Alertas inteligentes",
				"Relatórios de economia",
			},
			Progress: 100,
		},
		{
			ID:    "3",
			Title: "Landing Page Loja de Móveis",
			Description: "Landing page moderna e elegante para loja de móveis com catálogo interativo, " +
				"visualizador 3D e sistema de orçamentos",
			Image:    "/images/carvalho-moveis.png",
			Tech:     []string{"TypeScript", "TailwindCSS", "Next.js", "Framer Motion"},
			Color:    "from-amber-500 to-orange-500",
			Demo:     "https://lading-page-moveis.vercel.app/",
			Category: "E-commerce",
			Features: []string{
				"TypeScript para componentes",
				"CSS com animações",
				"JavaScript para interatividade",
				"Renderização otimizada",
			},
			Progress: 100,
		},
	}
}

// SeedInputs returns the seed set without ids, as inserted into a remote table
func SeedInputs() []ProjectInput {
	seeds := SeedProjects()
	inputs := make([]ProjectInput, len(seeds))
	for i, p := range seeds {
		inputs[i] = p.Input()
	}
	return inputs
}
