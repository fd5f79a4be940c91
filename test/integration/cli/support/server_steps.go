package support

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cucumber/godog"
)

func (testCtx *TestContext) theMetascanServerIsRunning() error {
	h, err := StartServer(context.Background())
	if err != nil {
		return err
	}
	testCtx.Server = h
	return nil
}

func (testCtx *TestContext) requireServer() error {
	if testCtx.Server == nil {
		return fmt.Errorf("server is not running")
	}
	return nil
}

func (testCtx *TestContext) iRequest(path string) error {
	if err := testCtx.requireServer(); err != nil {
		return err
	}
	resp, err := testCtx.Server.Get(path)
	if err != nil {
		return err
	}
	testCtx.LastHTTPStatusCode, testCtx.LastHTTPResponse, testCtx.LastHTTPHeaders, err = readResponse(resp)
	return err
}

func (testCtx *TestContext) iUploadAs(name, path, field string) error {
	if err := testCtx.requireServer(); err != nil {
		return err
	}
	resp, err := testCtx.Server.Upload(path, field, testCtx.Path(name))
	if err != nil {
		return err
	}
	testCtx.LastHTTPStatusCode, testCtx.LastHTTPResponse, testCtx.LastHTTPHeaders, err = readResponse(resp)
	return err
}

func (testCtx *TestContext) iUploadTheImage(name, path string) error {
	return testCtx.iUploadAs(name, path, "image")
}

func (testCtx *TestContext) theResponseStatusShouldBe(code int) error {
	if testCtx.LastHTTPStatusCode != code {
		return fmt.Errorf("expected status %d, got %d: %s", code, testCtx.LastHTTPStatusCode, testCtx.LastHTTPResponse)
	}
	return nil
}

func (testCtx *TestContext) theResponseShouldContain(s string) error {
	if !strings.Contains(testCtx.LastHTTPResponse, s) {
		return fmt.Errorf("response does not contain %q:\n%s", s, testCtx.LastHTTPResponse)
	}
	return nil
}

func (testCtx *TestContext) theResponseHeaderShouldBe(name, value string) error {
	if got := testCtx.LastHTTPHeaders[name]; got != value {
		return fmt.Errorf("header %s = %q, want %q", name, got, value)
	}
	return nil
}

func (testCtx *TestContext) theResponseShouldReportObjects(n int) error {
	var resp struct {
		Count int `json:"count"`
	}
	if err := decodeJSON(testCtx.LastHTTPResponse, &resp); err != nil {
		return err
	}
	if resp.Count != n {
		return fmt.Errorf("expected %d objects, got %d", n, resp.Count)
	}
	return nil
}

func (testCtx *TestContext) aWebsocketClientIsConnected() error {
	if err := testCtx.requireServer(); err != nil {
		return err
	}
	return testCtx.Server.ConnectWebSocket()
}

func (testCtx *TestContext) theWebsocketClientShouldReceiveAMessageContaining(s string) error {
	msg, err := testCtx.Server.ReadMessage(5 * time.Second)
	if err != nil {
		return fmt.Errorf("read websocket message: %w", err)
	}
	if !strings.Contains(msg, s) {
		return fmt.Errorf("message does not contain %q: %s", s, msg)
	}
	return nil
}

func (testCtx *TestContext) theStoreShouldHoldDescriptors(n int) error {
	sessions, err := testCtx.Server.Store.Sessions(context.Background())
	if err != nil {
		return err
	}
	total := 0
	for _, s := range sessions {
		total += s.Objects
	}
	if total != n {
		return fmt.Errorf("expected %d stored descriptors, got %d", n, total)
	}
	return nil
}

// RegisterServerSteps registers the HTTP API step definitions.
func (testCtx *TestContext) RegisterServerSteps(sc *godog.ScenarioContext) {
	sc.Step(`^the metascan server is running$`, testCtx.theMetascanServerIsRunning)
	sc.Step(`^I request "([^"]*)"$`, testCtx.iRequest)
	sc.Step(`^I upload the image "([^"]*)" to "([^"]*)"$`, testCtx.iUploadTheImage)
	sc.Step(`^I upload "([^"]*)" to "([^"]*)" as "([^"]*)"$`, testCtx.iUploadAs)
	sc.Step(`^the response status should be (\d+)$`, testCtx.theResponseStatusShouldBe)
	sc.Step(`^the response should contain "([^"]*)"$`, testCtx.theResponseShouldContain)
	sc.Step(`^the response header "([^"]*)" should be "([^"]*)"$`, testCtx.theResponseHeaderShouldBe)
	sc.Step(`^the response should report (\d+) objects?$`, testCtx.theResponseShouldReportObjects)
	sc.Step(`^a websocket client is connected$`, testCtx.aWebsocketClientIsConnected)
	sc.Step(`^the websocket client should receive a message containing "([^"]*)"$`,
		testCtx.theWebsocketClientShouldReceiveAMessageContaining)
	sc.Step(`^the store should hold (\d+) descriptors?$`, testCtx.theStoreShouldHoldDescriptors)
}
