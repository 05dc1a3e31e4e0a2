package config_test

import (
	"context"
	"fmt"

	"github.com/dymexjs/config/config"
)

func ExampleBuilder() {
	b := config.NewBuilder()
	_ = config.WithMemorySource(b, map[string]any{
		"HOST": "localhost",
		"PORT": "8080",
	})
	_ = config.WithMemorySource(b, map[string]any{
		"URL":   "http://${HOST}:${PORT}",
		"DEBUG": "${VERBOSE:-false}",
	})

	cfg, err := b.Build(context.Background())
	if err != nil {
		panic(err)
	}

	fmt.Println(cfg.Get("URL"))
	fmt.Println(cfg.Get("PORT"))
	fmt.Println(cfg.Get("DEBUG"))
	// Output:
	// http://localhost:8080
	// 8080
	// false
}

func ExampleConfiguration_Set() {
	cfg := config.New(nil)
	cfg.Set("db.primary.host", "localhost")
	cfg.Set("servers[1]", "beta")

	fmt.Println(cfg.Get("db.primary.host"))
	fmt.Println(cfg.Has("servers[0]"), cfg.Get("servers[1]"))

	b, _ := cfg.MarshalJSON()
	fmt.Println(string(b))
	// Output:
	// localhost
	// false beta
	// {"db":{"primary":{"host":"localhost"}},"servers":[null,"beta"]}
}

func ExampleConfiguration_Merge() {
	cfg := config.New(map[string]any{
		"db": map[string]any{"host": "localhost"},
	})
	cfg.Merge(map[string]any{
		"db":      map[string]any{"user": "admin"},
		"DB.PORT": 5432,
	})

	fmt.Println(cfg.Get("db.host"), cfg.Get("db.user"), cfg.Get("DB.PORT"))
	// Output: localhost admin 5432
}

func ExampleParseEnvFile() {
	values, err := config.ParseEnvFile("# defaults\nHOST=localhost\nPORT=\"3000\" # comment\n")
	if err != nil {
		panic(err)
	}
	fmt.Println(values["HOST"], values["PORT"])
	// Output: localhost 3000
}

func ExampleCoerce() {
	for _, s := range []string{"true", "42", "0.50", "007", "hello"} {
		fmt.Printf("%T %v\n", config.Coerce(s), config.Coerce(s))
	}
	// Output:
	// bool true
	// float64 42
	// float64 0.5
	// string 007
	// string hello
}
