package probe

import "testing"

func TestParseTagsCaseInsensitive(t *testing.T) {
	doc := `{"format":{"tags":{"album":"Foo","Artist":"Bar","MUSICBRAINZ_ALBUMID":"abc-123","disc":"2/3"}}}`
	tags := parseTags(doc)
	if tags.Album != "Foo" || tags.Artist != "Bar" {
		t.Fatalf("unexpected tags: %+v", tags)
	}
	if tags.MusicBrainzAlbumID != "abc-123" {
		t.Fatalf("unexpected mb id: %q", tags.MusicBrainzAlbumID)
	}
	if tags.Disc != 2 || tags.TotalDiscs != 3 {
		t.Fatalf("unexpected disc parse: %d/%d", tags.Disc, tags.TotalDiscs)
	}
}

func TestParseTagsMissingIsEmpty(t *testing.T) {
	tags := parseTags(`{"format":{}}`)
	if tags != (Tags{}) {
		t.Fatalf("expected zero Tags, got %+v", tags)
	}
}

func TestParseDiscWithoutTotal(t *testing.T) {
	disc, total := parseDisc("1")
	if disc != 1 || total != 0 {
		t.Fatalf("parseDisc(1) = %d, %d", disc, total)
	}
}
