package constant

// ProfileTemplate is a Go text/template for scaffolding new YAML source profiles.
const ProfileTemplate = `# {{ .Name }} source profile
# Generated by {{ .App }} {{ .Version }}
name: {{ .Name }}
domains:
  - {{ .URL }}
requiresBrowser: false
contentType: drama
pagination: "{base}/list?page={page}"
# firstPage: "{base}/list"
# waitSelector: ".item"
scroll: false
strategies:
  - item: ".item"
    title: ".title"
    image: "img"
    link: "a"
    rating: ".rating"
    year: ".year"
stream:
  expiryHours: 24
  referrerPolicy: strict-origin-when-cross-origin
`
