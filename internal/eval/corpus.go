package eval

// CorpusVersion identifies the fixed test corpus. Bump only when the corpus
// changes; results are comparable only within a version.
const CorpusVersion = "v1"

// corpusBookID is the synthetic book every evaluation run indexes.
const corpusBookID = "eval-corpus"

// QueryCase pairs a query with the keywords a relevant chunk should
// contain.
type QueryCase struct {
	Query    string
	Keywords []string
}

// The corpus is deliberately small, plain prose with clear topical
// separation per chapter, so keyword-based relevance judgments are stable.
var corpusChapters = []string{
	// chapter 0: Leonardo and the Renaissance workshop
	`Leonardo da Vinci entered the workshop of Andrea del Verrocchio in Florence as a boy, grinding pigments and preparing panels long before he touched a brush. The workshop trained him in painting, sculpture, and the mechanics of bronze casting, and it was there that the habits of observation that fill his notebooks took root.

His notebooks mix anatomy with hydraulics and flying machines, written in his famous mirror script. Patrons valued him as an engineer as much as a painter, and his letters to Ludovico Sforza list weapons and canal designs before mentioning art at all. The breadth of his studies made him the archetype of the Renaissance polymath.

The Last Supper in Milan and the Mona Lisa in Florence secured his fame as a painter, yet he finished remarkably few works. His experiments with oil and tempera on dry plaster doomed the Last Supper to early decay, a failure of technique born of his constant urge to invent rather than repeat.`,

	// chapter 1: printing and the spread of books
	`The printing press with movable type, introduced by Johannes Gutenberg in Mainz around 1450, transformed the economics of the written word. A scribe might copy one book in months; a press produced hundreds of copies in the same time, and the price of books collapsed within a generation.

Print shops spread along trade routes, first through German cities, then to Venice, which became the capital of European printing. Aldus Manutius printed compact editions of the classics there, cheap enough for scholars to carry, and his italic type saved paper and shelf space alike.

Cheap print fed literacy, and literacy fed demand for more print. Pamphlets and broadsheets carried news and argument to readers who had never owned a manuscript, and the habit of private, silent reading spread with them.`,

	// chapter 2: Florentine politics and patronage
	`The Medici bank made Florence the financial center of fifteenth-century Europe, and the family spent its fortune on churches, libraries, and painters. Cosimo de Medici funded the convent of San Marco and the first public library in the city, while his grandson Lorenzo gathered poets and philosophers around the Platonic Academy.

Patronage was politics. Commissioning an altarpiece or a palazzo announced a family's standing, and guilds competed to decorate the cathedral and the baptistery. The competition for the baptistery doors, won by Ghiberti over Brunelleschi, set the tone for a century of civic art.

When the Medici fell in 1494, the preacher Savonarola ruled the city's conscience, and bonfires consumed paintings, mirrors, and manuscripts. The republic that followed commissioned Michelangelo's David as a symbol of defiance, proof that art remained the city's language of power.`,
}

// corpusQueries are the fixed query cases. Keywords are matched
// case-insensitively against retrieved chunk text.
var corpusQueries = []QueryCase{
	{
		Query:    "where did Leonardo train as a painter",
		Keywords: []string{"workshop", "verrocchio", "florence"},
	},
	{
		Query:    "what did Leonardo write in his notebooks",
		Keywords: []string{"notebooks", "mirror", "anatomy"},
	},
	{
		Query:    "why did the Last Supper decay",
		Keywords: []string{"last supper", "plaster", "decay"},
	},
	{
		Query:    "how did the printing press change the price of books",
		Keywords: []string{"press", "copies", "price"},
	},
	{
		Query:    "which city became the capital of European printing",
		Keywords: []string{"venice", "printing", "aldus"},
	},
	{
		Query:    "who funded libraries in Florence",
		Keywords: []string{"medici", "library", "cosimo"},
	},
	{
		Query:    "what happened when Savonarola ruled Florence",
		Keywords: []string{"savonarola", "bonfires", "republic"},
	},
}
