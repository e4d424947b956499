// Package posedex is a Go client for the posedex hybrid pose and text image
// search API.
//
//	client, _ := posedex.New("http://localhost:8000", posedex.WithAPIKey(key))
//	res, _ := client.Search(ctx, posedex.SearchRequest{
//	    Sketch: sketchPNG,
//	    Text:   "dancer leaping",
//	    K:      posedex.Int(5),
//	})
//	for _, hit := range res.Results {
//	    fmt.Println(hit.Path, hit.Score)
//	}
package posedex
