package tools

import (
	"net"
	"testing"
)

func TestExtractTextStripsTagsAndScripts(t *testing.T) {
	html := `<html><head><style>body{color:red}</style></head><body><script>alert(1)</script><p>Hello   world</p></body></html>`
	got := extractText(html)
	if got != "Hello world" {
		t.Fatalf("extractText = %q, want %q", got, "Hello world")
	}
}

func TestIsPrivateOrReservedIP(t *testing.T) {
	cases := []struct {
		ip   string
		want bool
	}{
		{"127.0.0.1", true},
		{"10.0.0.5", true},
		{"192.168.1.1", true},
		{"169.254.169.254", true},
		{"8.8.8.8", false},
		{"93.184.216.34", false},
	}
	for _, c := range cases {
		got := isPrivateOrReservedIP(net.ParseIP(c.ip))
		if got != c.want {
			t.Errorf("isPrivateOrReservedIP(%s) = %v, want %v", c.ip, got, c.want)
		}
	}
}

func TestValidateURLForSSRFRejectsLoopbackAndBadScheme(t *testing.T) {
	cases := []struct {
		url     string
		wantErr bool
	}{
		{"http://127.0.0.1/admin", true},
		{"http://localhost/", true},
		{"ftp://example.com/", true},
		{"not a url\x7f", true},
	}
	for _, c := range cases {
		err := validateURLForSSRF(c.url)
		if (err != nil) != c.wantErr {
			t.Errorf("validateURLForSSRF(%q) err = %v, wantErr %v", c.url, err, c.wantErr)
		}
	}
}
