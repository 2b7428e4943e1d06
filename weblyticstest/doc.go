// Package weblyticstest provides test helpers for code using the weblytics
// SDK: a mock collection API, recording metrics and logger implementations,
// and a fake browser environment that runs the buffered browser path in a
// plain go test.
//
// # Mock Server
//
//	server := weblyticstest.NewMockServer()
//	defer server.Close()
//
//	client, _ := weblytics.New("key", weblytics.WithHost(server.URL))
//	// ... use client ...
//
//	for _, ev := range server.TrackedEvents() {
//	    // assert on ev
//	}
//
// # Browser Environment
//
//	env := weblyticstest.NewBrowserEnvironment("https://shop.example/?utm_source=google")
//	client, server := weblyticstest.NewBrowserTestClient(t, env)
//
//	client.Track(ctx, weblytics.Event{EventType: "view"})
//	env.Hide() // the page went to the background: the queue is sent
package weblyticstest
