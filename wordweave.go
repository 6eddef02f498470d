// Package wordweave provides a cache-first vocabulary substitution engine.
//
// Wordweave scans HTML documents for learnable words, resolves them to
// translations using a bounded local cache first and an AI provider second,
// and rewrites the document in place with reversible substitution nodes.
//
// Basic usage:
//
//	import (
//	    "context"
//	    "github.com/ZaguanLabs/wordweave"
//	    "github.com/ZaguanLabs/wordweave/cache"
//	    "github.com/ZaguanLabs/wordweave/processor"
//	    "github.com/ZaguanLabs/wordweave/provider"
//	    "github.com/ZaguanLabs/wordweave/scheduler"
//	)
//
//	func main() {
//	    p := provider.NewOpenAIProvider(provider.OpenAIConfig{
//	        APIKey: os.Getenv("OPENAI_API_KEY"),
//	    })
//
//	    o := wordweave.NewOrchestrator(wordweave.DefaultSettings(),
//	        wordweave.WithProvider(p),
//	        wordweave.WithCache(cache.NewLRUCache(2000)),
//	    )
//
//	    doc, _ := processor.ParseDocument(strings.NewReader(page))
//	    s := scheduler.New(doc, o)
//	    defer s.Close()
//
//	    s.ProcessPage(context.Background())
//	    s.Wait(context.Background())
//	    out, _ := s.HTML()
//	    fmt.Println(out)
//	}
package wordweave
