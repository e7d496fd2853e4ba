package testutils

// Name material for the taxonomy generator. The pools lean toward
// Australian zoology so generated samples read like the checklists the
// conversion jobs normally see.

const kingdomName = "Animalia"

var phylumNames = []string{
	"Chordata", "Arthropoda", "Mollusca", "Echinodermata", "Annelida",
	"Cnidaria", "Porifera", "Platyhelminthes", "Nematoda", "Bryozoa",
	"Brachiopoda", "Rotifera", "Tardigrada", "Onychophora", "Nemertea",
}

var classNames = []string{
	"Mammalia", "Aves", "Reptilia", "Amphibia", "Actinopterygii",
	"Chondrichthyes", "Insecta", "Arachnida", "Malacostraca",
	"Gastropoda", "Bivalvia", "Cephalopoda", "Polychaeta", "Anthozoa",
	"Asteroidea", "Echinoidea", "Chilopoda", "Diplopoda", "Collembola",
	"Ostracoda", "Copepoda", "Cirripedia",
}

// Order and family names are minted from stems; orders take a
// group-style suffix and families the uniform -idae.
var orderStems = []string{
	"Passer", "Accipitr", "Dasyur", "Peramel", "Diprotod", "Chiropter",
	"Rodent", "Squamat", "Anur", "Perc", "Clupe", "Coleopter",
	"Lepidopter", "Hymenopter", "Dipter", "Hemipter", "Odonat",
	"Decapod", "Amphipod", "Isopod", "Veneroid", "Littorin",
}

var orderSuffixes = []string{"iformes", "ida", "ptera", "odonta", "ales"}

var familyStems = []string{
	"Macropod", "Phalanger", "Petaur", "Molos", "Muri", "Scinc",
	"Agami", "Elapi", "Hyli", "Myobatrachi", "Percichthyi", "Gobi",
	"Carab", "Scarabae", "Curculion", "Noctu", "Formic", "Apo",
	"Culici", "Corduli", "Palaemon", "Portun", "Veneri", "Haliotid",
}

var genusStems = []string{
	"Acantho", "Brachy", "Calo", "Dendro", "Eu", "Glypto", "Hetero",
	"Lepto", "Macro", "Micro", "Neo", "Noto", "Ortho", "Pachy", "Para",
	"Platy", "Pseudo", "Rhyncho", "Steno", "Tricho", "Xantho", "Zygo",
	"Chryso", "Melano", "Leuco", "Erythro", "Cyano", "Austro",
}

var genusSuffixes = []string{
	"cera", "don", "gnathus", "mys", "ptera", "saurus", "soma",
	"therium", "chelys", "gale", "lestes", "batrachus", "perca",
	"cheilus", "nectes", "pecten",
}

var specificEpithets = []string{
	"australis", "borealis", "occidentalis", "orientalis",
	"meridionalis", "elegans", "gracilis", "robustus", "maculatus",
	"punctatus", "striatus", "lineatus", "obscurus", "pallidus",
	"niger", "rufus", "fuscus", "cinereus", "viridis", "aureus",
	"minor", "major", "minimus", "maximus", "vulgaris", "communis",
	"sylvestris", "montanus", "riparius", "littoralis", "fluviatilis",
	"lacustris", "insularis", "tropicus", "temporalis", "spinosus",
	"laevis", "crassus", "tenuis", "longipes", "brevipes", "velox",
	"queenslandicus", "tasmanicus", "novaehollandiae", "peronii",
	"mitchellii", "gouldii",
}

var authorNames = []string{
	"Gray", "Gould", "Macleay", "De Vis", "Ogilby", "Waite",
	"McCulloch", "Whitley", "Iredale", "Hedley", "Rainbow", "Froggatt",
	"Tillyard", "Mackerras", "Common", "Cogger", "Storr", "Kitchener",
}
