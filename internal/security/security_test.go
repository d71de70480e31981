package security

import "testing"

func TestTextSanitizer_Sanitize(t *testing.T) {
	s := NewTextSanitizer()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "空文字列", input: "", want: ""},
		{name: "プレーンテキストはそのまま", input: "Анна Петрова", want: "Анна Петрова"},
		{name: "前後の空白を除去", input: "  +7 999 000-00-00 ", want: "+7 999 000-00-00"},
		{name: "タグを除去", input: "<b>Ivan</b>", want: "Ivan"},
		{name: "scriptは内容ごと除去", input: "Ivan<script>alert(1)</script>", want: "Ivan"},
		{name: "アンパサンドは復元", input: "Маникюр & Педикюр", want: "Маникюр & Педикюр"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.Sanitize(tt.input); got != tt.want {
				t.Errorf("Sanitize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestValidatePhotoURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{name: "https公開ホスト", url: "https://i.imgur.com/8KmWnJQ.jpg", wantErr: false},
		{name: "http公開ホスト", url: "http://example.com/a.png", wantErr: false},
		{name: "空", url: "", wantErr: true},
		{name: "javascriptスキーム", url: "javascript:alert(1)", wantErr: true},
		{name: "dataスキーム", url: "data:image/png;base64,AAAA", wantErr: true},
		{name: "ホストなし", url: "https:///a.png", wantErr: true},
		{name: "localhost", url: "http://localhost/a.png", wantErr: true},
		{name: "ループバックIP", url: "http://127.0.0.1/a.png", wantErr: true},
		{name: "プライベートIP", url: "http://192.168.1.10/a.png", wantErr: true},
		{name: "メタデータIP", url: "http://169.254.169.254/latest", wantErr: true},
		{name: "IPv6ループバック", url: "http://[::1]/a.png", wantErr: true},
		{name: "公開IP", url: "http://93.184.216.34/a.png", wantErr: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePhotoURL(tt.url)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePhotoURL(%q) error = %v, wantErr %v", tt.url, err, tt.wantErr)
			}
		})
	}
}

func TestAllowList(t *testing.T) {
	list := NewAllowList([]string{" 111 ", "", "222"})

	if list.Len() != 2 {
		t.Errorf("Len() = %d, want 2", list.Len())
	}
	if !list.Allows("111") || !list.Allows("222") {
		t.Error("listed owners should be allowed")
	}
	if list.Allows("333") {
		t.Error("unlisted owner should not be allowed")
	}
	if list.Allows("") {
		t.Error("empty owner should not be allowed")
	}
}

func TestAllowList_Nil(t *testing.T) {
	var list *AllowList
	if list.Allows("111") {
		t.Error("nil allow-list should deny everyone")
	}
}
