package storage

import "testing"

func TestSanitizeFilename(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"song.mp3", "song.mp3"},
		{"my song.mp3", "my_song.mp3"},
		{"../../../etc/passwd", "etc_passwd"},
		{"file\x00name.txt", "filename.txt"},
		{"..", "unnamed_file"},
		{"", "unnamed_file"},
		{"a   b.wav", "a_b.wav"},
		{"weird*chars?.flac", "weird_chars_.flac"},
	}

	for _, tc := range cases {
		if got := SanitizeFilename(tc.in); got != tc.want {
			t.Errorf("SanitizeFilename(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestIsAudioFile(t *testing.T) {
	if !IsAudioFile("song.MP3") {
		t.Error("expected .MP3 to be accepted")
	}
	if !IsAudioFile("take.flac") {
		t.Error("expected .flac to be accepted")
	}
	if IsAudioFile("notes.txt") {
		t.Error("expected .txt to be rejected")
	}
	if IsAudioFile("song") {
		t.Error("expected extensionless name to be rejected")
	}
}
