package results

// phrasePattern maps a multi-word garment phrase to its item type.
type phrasePattern struct {
	Phrase   string
	ItemType string
}

// phrasePatterns is checked first and in order, so specific garment names win
// over the single-word vocabulary ("leather jacket" before "jacket").
var phrasePatterns = []phrasePattern{
	// Tops
	{"tank top", "tank_top"},
	{"tube top", "tube_top"},
	{"crop top", "crop_top"},
	{"halter top", "halter_top"},
	{"mock neck", "turtleneck"},
	{"cowl neck", "sweater"},
	{"v-neck", "shirt"},
	{"crew neck", "shirt"},
	{"crewneck", "shirt"},

	// Outerwear
	{"leather jacket", "leather_jacket"},
	{"denim jacket", "denim_jacket"},
	{"jean jacket", "denim_jacket"},
	{"bomber jacket", "bomber_jacket"},
	{"puffer jacket", "puffer_jacket"},
	{"down jacket", "puffer_jacket"},
	{"track jacket", "track_jacket"},
	{"varsity jacket", "varsity_jacket"},
	{"rain jacket", "raincoat"},
	{"trench coat", "trench_coat"},
	{"pea coat", "peacoat"},
	{"duffle coat", "coat"},

	// Bottoms
	{"cargo pants", "cargo_pants"},
	{"cargo shorts", "cargo_shorts"},
	{"yoga pants", "yoga_pants"},
	{"track pants", "track_pants"},
	{"sweat pants", "sweatpants"},
	{"palazzo pants", "palazzo_pants"},
	{"wide leg pants", "wide_leg_pants"},
	{"straight leg pants", "pants"},
	{"skinny jeans", "skinny_jeans"},
	{"slim jeans", "jeans"},
	{"boyfriend jeans", "jeans"},
	{"mom jeans", "jeans"},
	{"bootcut jeans", "jeans"},
	{"bermuda shorts", "bermuda_shorts"},
	{"board shorts", "board_shorts"},
	{"bike shorts", "bike_shorts"},
	{"cycling shorts", "bike_shorts"},
	{"running shorts", "athletic_shorts"},
	{"athletic shorts", "athletic_shorts"},
	{"denim shorts", "denim_shorts"},
	{"jean shorts", "denim_shorts"},

	// Skirts
	{"pencil skirt", "pencil_skirt"},
	{"a-line skirt", "a_line_skirt"},
	{"a line skirt", "a_line_skirt"},
	{"circle skirt", "circle_skirt"},
	{"pleated skirt", "pleated_skirt"},
	{"wrap skirt", "wrap_skirt"},
	{"mini skirt", "mini_skirt"},
	{"midi skirt", "midi_skirt"},
	{"maxi skirt", "maxi_skirt"},

	// Dresses
	{"cocktail dress", "cocktail_dress"},
	{"evening dress", "evening_dress"},
	{"ball gown", "gown"},
	{"sheath dress", "sheath_dress"},
	{"shift dress", "shift_dress"},
	{"wrap dress", "wrap_dress"},
	{"shirt dress", "shirt_dress"},
	{"sweater dress", "sweater_dress"},
	{"jumper dress", "jumper_dress"},
	{"slip dress", "slip_dress"},
	{"bodycon dress", "bodycon_dress"},
	{"fit and flare dress", "fit_and_flare_dress"},
	{"a-line dress", "a_line_dress"},
	{"a line dress", "a_line_dress"},
	{"maxi dress", "maxi_dress"},
	{"midi dress", "midi_dress"},
	{"mini dress", "mini_dress"},
	{"sun dress", "sundress"},

	// Formal shirts
	{"dress shirt", "dress_shirt"},
	{"button down", "button_down"},
	{"button up", "button_down"},
	{"oxford shirt", "oxford_shirt"},
	{"polo shirt", "polo"},
	{"rugby shirt", "rugby_shirt"},

	// Athletic and swim
	{"sports bra", "sports_bra"},
	{"compression shirt", "compression_shirt"},
	{"rash guard", "rashguard"},
	{"swim trunks", "swim_trunks"},
	{"swim shorts", "swim_shorts"},
	{"bathing suit", "swimsuit"},
	{"swimming costume", "swimsuit"},

	// Footwear
	{"running shoes", "running_shoes"},
	{"tennis shoes", "sneakers"},
	{"athletic shoes", "sneakers"},
	{"high tops", "high_tops"},
	{"low tops", "sneakers"},
	{"high heels", "heels"},
	{"kitten heels", "heels"},
	{"block heels", "heels"},
	{"ankle boots", "ankle_boots"},
	{"over the knee boots", "over_knee_boots"},
	{"knee high boots", "knee_high_boots"},
	{"thigh high boots", "thigh_high_boots"},
	{"cowboy boots", "cowboy_boots"},
	{"combat boots", "combat_boots"},
	{"work boots", "work_boots"},
	{"hiking boots", "hiking_boots"},
	{"rain boots", "rain_boots"},
	{"snow boots", "snow_boots"},
	{"chelsea boots", "chelsea_boots"},
	{"desert boots", "desert_boots"},
	{"chukka boots", "chukka_boots"},
	{"ugg boots", "uggs"},
	{"boat shoes", "boat_shoes"},
	{"deck shoes", "boat_shoes"},
	{"driving shoes", "loafers"},
	{"penny loafers", "loafers"},
	{"ballet flats", "flats"},
	{"flip flops", "flip_flops"},
	{"gladiator sandals", "sandals"},

	// Accessories
	{"baseball cap", "baseball_cap"},
	{"trucker hat", "trucker_hat"},
	{"bucket hat", "bucket_hat"},
	{"sun hat", "sun_hat"},
	{"winter hat", "beanie"},
	{"knit hat", "beanie"},
	{"bow tie", "bow_tie"},
	{"fanny pack", "fanny_pack"},
	{"waist pack", "fanny_pack"},
	{"belt bag", "belt_bag"},
	{"cross body bag", "crossbody_bag"},
	{"crossbody bag", "crossbody_bag"},
	{"shoulder bag", "shoulder_bag"},
	{"tote bag", "tote"},
	{"messenger bag", "messenger_bag"},

	// Intimates and sleepwear
	{"boxer briefs", "boxer_briefs"},
	{"boy shorts", "boyshorts"},
	{"dressing gown", "robe"},

	// One-pieces
	{"one piece", "bodysuit"},
	{"two piece", "bikini"},
}

// vocabulary is the single-word garment list. Order matters only for the
// substring fallback, where more specific words come before generic ones.
var vocabulary = []string{
	// Outerwear
	"parka", "anorak", "windbreaker", "raincoat", "peacoat", "overcoat",
	"blazer", "puffer", "bomber", "varsity", "mackintosh", "slicker",

	// Tops
	"hoodie", "hoody", "sweatshirt", "sweater", "jumper", "pullover",
	"cardigan", "cardi", "shrug", "bolero", "turtleneck", "henley",
	"polo", "tunic", "camisole", "cami", "blouse", "bodysuit", "leotard",
	"unitard", "jersey", "fleece", "thermal", "rashguard",

	// Dresses and one-pieces
	"dress", "gown", "sundress", "pinafore", "smock", "frock",
	"jumpsuit", "romper", "playsuit", "onesie", "catsuit",
	"coveralls", "overalls", "dungarees", "shortalls",

	// Bottoms
	"jeans", "denim", "chinos", "khakis", "corduroys", "cords",
	"culottes", "gauchos", "joggers", "sweatpants", "sweats",
	"leggings", "tights", "jeggings", "treggings", "capris",
	"trousers", "slacks", "britches", "knickers",

	// Shorts
	"shorts", "bermudas", "jorts", "cutoffs",

	// Skirts
	"skirt", "kilt", "sarong", "tutu", "petticoat",

	// Intimates
	"underwear", "panties", "briefs", "boxers", "thong", "boyshorts",
	"bra", "brassiere", "bralette", "bustier", "corset", "basque",
	"slip", "chemise", "teddy", "negligee", "lingerie",

	// Sleepwear
	"pajamas", "pyjamas", "pjs", "nightgown", "nightie", "nightshirt",
	"robe", "bathrobe", "housecoat",

	// Swimwear
	"swimsuit", "bikini", "tankini", "monokini", "wetsuit", "swimwear",

	// Footwear
	"shoes", "sneakers", "trainers", "runners", "kicks",
	"boots", "booties", "wellies", "uggs", "wellingtons",
	"heels", "stilettos", "pumps", "platforms", "wedges",
	"flats", "espadrilles", "mules", "clogs", "slides",
	"sandals", "flip-flops", "thongs", "huaraches", "birkenstocks",
	"loafers", "moccasins", "oxfords", "brogues", "derbies",
	"cleats", "spikes",

	// Accessories
	"hat", "cap", "beanie", "beret", "fedora", "trilby", "panama",
	"bowler", "sombrero", "fascinator", "headband", "headscarf",
	"turban", "visor", "snapback", "stetson",
	"scarf", "tie", "necktie", "ascot", "cravat", "bandana",
	"gloves", "mittens", "gauntlets",
	"belt", "sash", "cummerbund", "suspenders", "braces",
	"bag", "purse", "handbag", "clutch", "wristlet", "wallet",
	"backpack", "rucksack", "satchel", "tote", "briefcase",

	// Traditional
	"sari", "saree", "kimono", "yukata", "cheongsam", "qipao",
	"dirndl", "lederhosen", "poncho", "serape", "dashiki", "kaftan",
	"thobe", "abaya", "hijab", "burqa", "niqab", "dhoti", "lungi",
	"hanbok", "kente",

	// Formal
	"suit", "tuxedo", "tux", "waistcoat", "vest", "gilet",

	// Generic terms last
	"jacket", "coat", "top", "shirt", "pants", "garment", "apparel",
}

// irregularPlurals maps plural words that suffix stripping cannot resolve.
var irregularPlurals = map[string]string{
	"scarves": "scarf",
	"clothes": "clothing",
}

// genderMarkers introduce a garment word, possibly after modifiers.
var genderMarkers = []string{
	"women's", "womens", "men's", "mens", "girls", "boys", "ladies",
	"unisex", "kids", "children's", "childrens",
}

// genderModifiers are skipped between a gender marker and the garment word.
var genderModifiers = []string{
	"vintage", "casual", "formal", "summer", "winter", "spring", "fall",
	"designer", "luxury", "cheap", "discount", "new", "used", "small",
	"medium", "large", "xl", "xxl", "plus", "size", "petite", "tall",
}

// normalizations coarsen specific item types for display grouping.
var normalizations = map[string]string{
	// Shoes
	"sneakers": "shoes", "trainers": "shoes", "runners": "shoes",
	"heels": "shoes", "stilettos": "shoes", "pumps": "shoes",
	"platforms": "shoes", "wedges": "shoes", "flats": "shoes",
	"loafers": "shoes", "moccasins": "shoes", "oxfords": "shoes",
	"brogues": "shoes", "derbies": "shoes", "espadrilles": "shoes",
	"mules": "shoes", "clogs": "shoes", "slides": "shoes",
	"sandals": "shoes", "flip-flops": "shoes", "thongs": "shoes",
	"running_shoes": "shoes", "boat_shoes": "shoes", "flip_flops": "shoes",
	"high_tops": "shoes",

	// Boots
	"booties": "boots", "wellies": "boots", "uggs": "boots",
	"ankle_boots": "boots", "knee_high_boots": "boots", "over_knee_boots": "boots",
	"thigh_high_boots": "boots", "cowboy_boots": "boots", "combat_boots": "boots",
	"work_boots": "boots", "hiking_boots": "boots", "rain_boots": "boots",
	"snow_boots": "boots", "chelsea_boots": "boots", "desert_boots": "boots",
	"chukka_boots": "boots",

	// Jackets
	"blazer": "jacket", "bomber": "jacket", "puffer": "jacket",
	"varsity": "jacket", "windbreaker": "jacket",
	"leather_jacket": "jacket", "denim_jacket": "jacket", "bomber_jacket": "jacket",
	"puffer_jacket": "jacket", "track_jacket": "jacket", "varsity_jacket": "jacket",

	// Coats
	"parka": "coat", "peacoat": "coat", "overcoat": "coat",
	"raincoat": "coat", "anorak": "coat", "trench_coat": "coat",

	// Pants
	"jeans": "pants", "chinos": "pants", "khakis": "pants",
	"trousers": "pants", "slacks": "pants", "joggers": "pants",
	"sweatpants": "pants", "leggings": "pants", "tights": "pants",
	"cargo_pants": "pants", "yoga_pants": "pants", "track_pants": "pants",
	"palazzo_pants": "pants", "wide_leg_pants": "pants", "skinny_jeans": "pants",

	// Underwear
	"panties": "underwear", "briefs": "underwear", "boxers": "underwear",
	"thong": "underwear", "boyshorts": "underwear", "boxer_briefs": "underwear",
}
