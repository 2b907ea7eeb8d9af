package canon

import "fmt"

// ordinals are the spoken and written forms of the numbered-book prefixes.
var ordinals = map[int][]string{
	1: {"first", "1st"},
	2: {"second", "2nd"},
	3: {"third", "3rd"},
}

// numbered expands the base names of a numbered book ("samuel", "sam") into
// "1 samuel", "1samuel", "first samuel", "1st samuel" and so on.
func numbered(n int, bases ...string) []string {
	out := make([]string, 0, len(bases)*(2+len(ordinals[n])))
	for _, base := range bases {
		out = append(out, fmt.Sprintf("%d %s", n, base), fmt.Sprintf("%d%s", n, base))
		for _, o := range ordinals[n] {
			out = append(out, o+" "+base)
		}
	}
	return out
}

// bookTable returns the static book descriptions indexed by Book.
func bookTable() []info {
	return []info{
		{},
		{"Genesis", "Gen", []string{"gen", "gn"}},
		{"Exodus", "Exod", []string{"exo", "ex"}},
		{"Leviticus", "Lev", []string{"lev", "lv"}},
		{"Numbers", "Num", []string{"num", "nm"}},
		{"Deuteronomy", "Deut", []string{"deut", "dt"}},
		{"Joshua", "Josh", []string{"josh"}},
		{"Judges", "Judg", []string{"judg", "jdg"}},
		{"Ruth", "Ruth", nil},
		{"1 Samuel", "1Sam", numbered(1, "samuel", "sam")},
		{"2 Samuel", "2Sam", numbered(2, "samuel", "sam")},
		{"1 Kings", "1Kgs", numbered(1, "kings", "kgs")},
		{"2 Kings", "2Kgs", numbered(2, "kings", "kgs")},
		{"1 Chronicles", "1Chr", numbered(1, "chronicles", "chr")},
		{"2 Chronicles", "2Chr", numbered(2, "chronicles", "chr")},
		{"Ezra", "Ezra", nil},
		{"Nehemiah", "Neh", []string{"neh"}},
		{"Esther", "Esth", []string{"est", "esth"}},
		{"Job", "Job", nil},
		{"Psalms", "Ps", []string{"psalm", "ps", "psa", "pss"}},
		{"Proverbs", "Prov", []string{"prov", "pr", "prv"}},
		{"Ecclesiastes", "Eccl", []string{"eccl", "ecc", "qoheleth"}},
		{"Song of Solomon", "Song", []string{"song", "sos", "song of songs", "canticles"}},
		{"Isaiah", "Isa", []string{"isa"}},
		{"Jeremiah", "Jer", []string{"jer"}},
		{"Lamentations", "Lam", []string{"lam"}},
		{"Ezekiel", "Ezek", []string{"ezek", "eze"}},
		{"Daniel", "Dan", []string{"dan"}},
		{"Hosea", "Hos", []string{"hos"}},
		{"Joel", "Joel", nil},
		{"Amos", "Amos", nil},
		{"Obadiah", "Obad", []string{"obad"}},
		{"Jonah", "Jonah", nil},
		{"Micah", "Mic", []string{"mic"}},
		{"Nahum", "Nah", []string{"nah"}},
		{"Habakkuk", "Hab", []string{"hab"}},
		{"Zephaniah", "Zeph", []string{"zeph", "zep"}},
		{"Haggai", "Hag", []string{"hag"}},
		{"Zechariah", "Zech", []string{"zech", "zec"}},
		{"Malachi", "Mal", []string{"mal"}},
		{"Matthew", "Matt", []string{"matt", "mt"}},
		{"Mark", "Mark", []string{"mk"}},
		{"Luke", "Luke", []string{"lk"}},
		{"John", "John", []string{"jn"}},
		{"Acts", "Acts", []string{"acts of the apostles"}},
		{"Romans", "Rom", []string{"rom"}},
		{"1 Corinthians", "1Cor", numbered(1, "corinthians", "cor")},
		{"2 Corinthians", "2Cor", numbered(2, "corinthians", "cor")},
		{"Galatians", "Gal", []string{"gal"}},
		{"Ephesians", "Eph", []string{"eph"}},
		{"Philippians", "Phil", []string{"phil", "php"}},
		{"Colossians", "Col", []string{"col"}},
		{"1 Thessalonians", "1Thess", numbered(1, "thessalonians", "thess")},
		{"2 Thessalonians", "2Thess", numbered(2, "thessalonians", "thess")},
		{"1 Timothy", "1Tim", numbered(1, "timothy", "tim")},
		{"2 Timothy", "2Tim", numbered(2, "timothy", "tim")},
		{"Titus", "Titus", []string{"tit"}},
		{"Philemon", "Phlm", []string{"phlm", "philem", "phm"}},
		{"Hebrews", "Heb", []string{"heb"}},
		{"James", "Jas", []string{"jas"}},
		{"1 Peter", "1Pet", numbered(1, "peter", "pet")},
		{"2 Peter", "2Pet", numbered(2, "peter", "pet")},
		{"1 John", "1John", numbered(1, "john", "jn")},
		{"2 John", "2John", numbered(2, "john", "jn")},
		{"3 John", "3John", numbered(3, "john", "jn")},
		{"Jude", "Jude", nil},
		{"Revelation", "Rev", []string{"rev", "revelations", "the revelation"}},
	}
}
