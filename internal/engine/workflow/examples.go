package workflow

import "sort"

const (
	ExampleText = "Hello, world!"
	ExampleJSON = `{"data":"some data"}`
	ExampleURL  = "https://openai.com"
)

var examples = map[string]string{
	"hello": ExampleText,
	"json":  ExampleJSON,
	"url":   ExampleURL,
}

func ExampleByName(name string) (string, bool) {
	sample, ok := examples[name]
	return sample, ok
}

func ExampleNames() []string {
	names := make([]string, 0, len(examples))
	for name := range examples {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
