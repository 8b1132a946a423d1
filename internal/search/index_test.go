package search

import (
	"reflect"
	"testing"

	"github.com/bwmarrin/snowflake"
)

func docs() []Document {
	return []Document{
		{ID: 1, Text: "Dark Mode: Ein Dark Mode für die gesamte Anwendung"},
		{ID: 2, Text: "Export als PDF\nExport von Featurelisten als PDF-Dokument."},
		{ID: 3, Text: "Jira Integration"},
		{ID: 4, Text: "   "},
		{ID: 5, Text: "Export CSV"},
	}
}

func ids(rs []Result) []snowflake.ID {
	out := make([]snowflake.ID, len(rs))
	for i, r := range rs {
		out[i] = r.ID
	}
	return out
}

func TestNew_SkipsEmptyDocumentsAndBuildsVocabulary(t *testing.T) {
	idx := New(docs()).(*index)
	if want := []snowflake.ID{1, 2, 3, 5}; !reflect.DeepEqual(idx.ids, want) {
		t.Fatalf("indexed ids = %v want %v", idx.ids, want)
	}
	// "export" twice and "als" twice in doc 2 count once
	if idx.sizes[1] != 6 {
		t.Fatalf("doc 2 has %d distinct terms, want 6", idx.sizes[1])
	}
	if got := idx.postings["export"]; !reflect.DeepEqual(got, []int{1, 3}) {
		t.Fatalf("postings[export] = %v", got)
	}
	for i := 1; i < len(idx.vocab); i++ {
		if idx.vocab[i-1] >= idx.vocab[i] {
			t.Fatalf("vocab not sorted and unique at %d: %v", i, idx.vocab)
		}
	}
}

func TestOptions(t *testing.T) {
	var o options
	WithStopwords(nil)(&o)
	if o.stopwords != nil {
		t.Fatal("empty stopwords should stay nil")
	}
	WithStopwords([]string{"  The ", "", "Für"})(&o)
	for _, w := range []string{"the", "fur"} {
		if _, ok := o.stopwords[w]; !ok {
			t.Fatalf("stopword %q missing: %v", w, o.stopwords)
		}
	}

	WithMinScore(0.4)(&o)
	WithMinScore(2)(&o)
	WithMinScore(-1)(&o)
	if o.minScore != 0.4 {
		t.Fatalf("minScore = %v, out-of-range values must be ignored", o.minScore)
	}
}

func TestSearch_EmptyInputs(t *testing.T) {
	idx := New(docs())
	for _, q := range []string{"", "   ", "!!!", "ex"} {
		if got := idx.Search(q); got != nil {
			t.Fatalf("Search(%q) = %v, want nil", q, got)
		}
	}
	if got := New(nil).Search("dark"); got != nil {
		t.Fatalf("empty index should return nil, got %v", got)
	}
}

func TestSearch_ScoresAndOrder(t *testing.T) {
	idx := New(docs())

	cases := []struct {
		q    string
		want []snowflake.ID
	}{
		{"dark", []snowflake.ID{1}},
		// fewer terms score higher: 1/2 for "Export CSV" vs 1/6
		{"EXPORT", []snowflake.ID{5, 2}},
		{"exp", []snowflake.ID{5, 2}},
		{"integ jira", []snowflake.ID{3}},
		// diacritics fold both ways
		{"fur", []snowflake.ID{1}},
		{"Dökument", []snowflake.ID{2}},
	}
	for _, tc := range cases {
		if got := ids(idx.Search(tc.q)); !reflect.DeepEqual(got, tc.want) {
			t.Errorf("Search(%q) = %v want %v", tc.q, got, tc.want)
		}
	}

	if got := idx.Search("export csv"); len(got) != 2 || got[0].Score != 1 || got[1].Score != 1.0/7 {
		t.Fatalf("export csv scores = %+v", got)
	}
}

func TestSearch_TiesKeepDocumentOrder(t *testing.T) {
	idx := New([]Document{{ID: 30, Text: "Kalender Sync"}, {ID: 10, Text: "Kalender Export"}, {ID: 20, Text: "Kalender Import"}})
	if got := ids(idx.Search("kalender")); !reflect.DeepEqual(got, []snowflake.ID{30, 10, 20}) {
		t.Fatalf("ties = %v", got)
	}
}

func TestTopK_AndMinScore(t *testing.T) {
	idx := New(docs())
	if got := idx.TopK("export pdf jira", 1); len(got) != 1 {
		t.Fatalf("TopK(1) = %v", got)
	}
	if got := idx.TopK("export pdf jira", 0); len(got) != 3 {
		t.Fatalf("TopK(0) should default to 3, got %v", got)
	}
	if got := idx.TopK("nothing matches", 5); len(got) != 0 {
		t.Fatalf("no match should be empty, got %v", got)
	}

	strict := New(docs(), WithMinScore(0.9))
	if got := strict.Search("jira"); got != nil {
		t.Fatalf("0.5 score should be filtered by min 0.9, got %v", got)
	}
	if got := strict.Search("jira integration"); len(got) != 1 || got[0].Score != 1 {
		t.Fatalf("exact match should pass, got %v", got)
	}
}

func TestStopwords(t *testing.T) {
	idx := New(docs(), WithStopwords([]string{"als", "von", "für"}))
	if got := idx.Search("als"); got != nil {
		t.Fatalf("stopword-only query should return nil, got %v", got)
	}
	// doc 2 loses two terms: export now scores 1/4
	got := idx.Search("export")
	if len(got) != 2 || got[1].ID != 2 || got[1].Score != 0.25 {
		t.Fatalf("export with stopwords = %+v", got)
	}
}

func TestFold(t *testing.T) {
	for in, want := range map[string]string{"Für": "fur", "ÉLAN": "elan", "Straße": "straße", "plain": "plain"} {
		if got := fold(in); got != want {
			t.Errorf("fold(%q) = %q want %q", in, got, want)
		}
	}
}
