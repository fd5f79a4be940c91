package support

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/MeKo-Tech/metascan/cmd/metascan/cmd"
	"github.com/MeKo-Tech/metascan/internal/testutil"
	"github.com/cucumber/godog"
)

type outputFrame struct {
	Source  string `json:"source"`
	Objects []struct {
		Type        string  `json:"type"`
		StringValue *string `json:"string_value"`
		Mirrored    bool    `json:"mirrored"`
	} `json:"objects"`
}

func (testCtx *TestContext) aQRCodeImageContaining(name, content string) error {
	img, err := testutil.QRCodeImage(content, 240)
	if err != nil {
		return err
	}
	return testutil.WritePNG(testCtx.Path(name), img)
}

func (testCtx *TestContext) aBlankImage(name string) error {
	return testutil.WritePNG(testCtx.Path(name), testutil.Blank(120, 80))
}

// iRunMetascan executes the CLI in-process with whitespace separated args.
func (testCtx *TestContext) iRunMetascan(args string) error {
	testCtx.LastCommand = "metascan " + args
	cmd.ResetFlags()
	defer cmd.ResetFlags()

	root := cmd.GetRootCommand()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(strings.Fields(testCtx.expand(args)))

	testCtx.LastError = root.Execute()
	testCtx.LastOutput = out.String()
	return nil
}

func (testCtx *TestContext) theCommandShouldSucceed() error {
	if testCtx.LastError != nil {
		return fmt.Errorf("%q failed: %w", testCtx.LastCommand, testCtx.LastError)
	}
	return nil
}

func (testCtx *TestContext) theCommandShouldFail() error {
	if testCtx.LastError == nil {
		return fmt.Errorf("%q succeeded, output:\n%s", testCtx.LastCommand, testCtx.LastOutput)
	}
	return nil
}

func (testCtx *TestContext) theOutputShouldContain(s string) error {
	if !strings.Contains(testCtx.LastOutput, testCtx.expand(s)) {
		return fmt.Errorf("output does not contain %q:\n%s", s, testCtx.LastOutput)
	}
	return nil
}

func (testCtx *TestContext) theErrorShouldMention(s string) error {
	if testCtx.LastError == nil {
		return errors.New("expected an error")
	}
	if !strings.Contains(strings.ToLower(testCtx.LastError.Error()), strings.ToLower(s)) {
		return fmt.Errorf("error %q does not mention %q", testCtx.LastError, s)
	}
	return nil
}

func (testCtx *TestContext) theOutputShouldBeValidJSON() error {
	if !json.Valid([]byte(testCtx.LastOutput)) {
		return fmt.Errorf("output is not valid JSON:\n%s", testCtx.LastOutput)
	}
	return nil
}

func (testCtx *TestContext) outputFrames() ([]outputFrame, error) {
	var frames []outputFrame
	if err := json.Unmarshal([]byte(testCtx.LastOutput), &frames); err != nil {
		return nil, fmt.Errorf("decode output: %w", err)
	}
	return frames, nil
}

func (testCtx *TestContext) theOutputShouldListObjectsOfType(n int, typ string) error {
	frames, err := testCtx.outputFrames()
	if err != nil {
		return err
	}
	count := 0
	for _, f := range frames {
		for _, o := range f.Objects {
			if o.Type == typ {
				count++
			}
		}
	}
	if count != n {
		return fmt.Errorf("expected %d objects of type %s, got %d", n, typ, count)
	}
	return nil
}

func (testCtx *TestContext) theOutputShouldListFrames(n int) error {
	frames, err := testCtx.outputFrames()
	if err != nil {
		return err
	}
	if len(frames) != n {
		return fmt.Errorf("expected %d frames, got %d", n, len(frames))
	}
	return nil
}

func (testCtx *TestContext) aDecodedValueShouldBe(value string) error {
	frames, err := testCtx.outputFrames()
	if err != nil {
		return err
	}
	for _, f := range frames {
		for _, o := range f.Objects {
			if o.StringValue != nil && *o.StringValue == value {
				return nil
			}
		}
	}
	return fmt.Errorf("no object decoded to %q", value)
}

func (testCtx *TestContext) theFileShouldExist(name string) error {
	if _, err := os.Stat(testCtx.expand(name)); err != nil {
		return fmt.Errorf("file %s: %w", name, err)
	}
	return nil
}

func (testCtx *TestContext) theFileShouldContain(name, s string) error {
	data, err := os.ReadFile(testCtx.expand(name))
	if err != nil {
		return err
	}
	if !strings.Contains(string(data), s) {
		return fmt.Errorf("file %s does not contain %q", name, s)
	}
	return nil
}

// RegisterCLISteps registers the command-line step definitions.
func (testCtx *TestContext) RegisterCLISteps(sc *godog.ScenarioContext) {
	sc.Step(`^a QR code image "([^"]*)" containing "([^"]*)"$`, testCtx.aQRCodeImageContaining)
	sc.Step(`^a blank image "([^"]*)"$`, testCtx.aBlankImage)
	sc.Step(`^I run metascan with "([^"]*)"$`, testCtx.iRunMetascan)
	sc.Step(`^the command should succeed$`, testCtx.theCommandShouldSucceed)
	sc.Step(`^the command should fail$`, testCtx.theCommandShouldFail)
	sc.Step(`^the output should contain "([^"]*)"$`, testCtx.theOutputShouldContain)
	sc.Step(`^the error should mention "([^"]*)"$`, testCtx.theErrorShouldMention)
	sc.Step(`^the output should be valid JSON$`, testCtx.theOutputShouldBeValidJSON)
	sc.Step(`^the output should list (\d+) objects? of type "([^"]*)"$`, testCtx.theOutputShouldListObjectsOfType)
	sc.Step(`^the output should list (\d+) frames?$`, testCtx.theOutputShouldListFrames)
	sc.Step(`^a decoded value should be "([^"]*)"$`, testCtx.aDecodedValueShouldBe)
	sc.Step(`^the file "([^"]*)" should exist$`, testCtx.theFileShouldExist)
	sc.Step(`^the file "([^"]*)" should contain "([^"]*)"$`, testCtx.theFileShouldContain)
}
