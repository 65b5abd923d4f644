package jsonutil

import "testing"

func TestMarshalNoEscape(t *testing.T) {
	out, err := MarshalNoEscape(map[string]string{"c": "<div>&</div>"})
	if err != nil {
		t.Fatal(err)
	}
	if got, want := string(out), `{"c":"<div>&</div>"}`; got != want {
		t.Fatalf("got %s want %s", got, want)
	}
}

func TestStripCodeFences(t *testing.T) {
	cases := []struct{ in, want string }{
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{"```\n{\"a\":1}```", `{"a":1}`},
		{"  {\"a\":1}  ", `{"a":1}`},
		{"```tsx\nexport default 1\n```", "export default 1"},
	}
	for _, tc := range cases {
		if got := StripCodeFences(tc.in); got != tc.want {
			t.Fatalf("StripCodeFences(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestUnwrapCodeFence(t *testing.T) {
	body := "const help = `Use:\n```bash\nnpm run dev\n```\n`;\nexport default help"
	cases := []struct{ in, want string }{
		{"```tsx\n" + body + "\n```", body},
		{"```\n" + body + "\n```\n", body},
		{body, body},
		{"```tsx\nexport default 1\n```", "export default 1"},
		{"```tsx\n\n```", ""},
		{"```tsx\nno closing fence", "no closing fence"},
		{"```x```", "x"},
	}
	for _, tc := range cases {
		if got := UnwrapCodeFence(tc.in); got != tc.want {
			t.Fatalf("UnwrapCodeFence(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
