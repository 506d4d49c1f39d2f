package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/HugeFrog24/video-playbook/utils"
)

func TestRequestFromFlags(t *testing.T) {
	dir := t.TempDir()
	eventsFile := filepath.Join(dir, "events.txt")
	if err := os.WriteFile(eventsFile, []byte("opened ticket #42\r\n\nclosed ticket\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cmd := newGenerateCmd()
	if err := cmd.ParseFlags([]string{"--event", "clicked Save", "--events-file", eventsFile, "--no-cache", "-n", "2"}); err != nil {
		t.Fatalf("ParseFlags failed: %v", err)
	}

	cfg := utils.DefaultConfig()
	req, err := requestFromFlags(cmd, "gs://bucket/clip.mp4", cfg)
	if err != nil {
		t.Fatalf("requestFromFlags failed: %v", err)
	}

	wantEvents := []string{"clicked Save", "opened ticket #42", "closed ticket"}
	if strings.Join(req.Events, "|") != strings.Join(wantEvents, "|") {
		t.Errorf("Events = %q, want %q", req.Events, wantEvents)
	}
	if req.Cache {
		t.Error("Expected caching to be disabled")
	}
	if req.N != 2 || req.MIMEType != "video/mp4" || req.Model != utils.DefaultModel {
		t.Errorf("Unexpected request: %+v", req)
	}
}

func TestRequestFromFlagsRejectsZeroN(t *testing.T) {
	cmd := newGenerateCmd()
	if err := cmd.ParseFlags([]string{"-n", "0"}); err != nil {
		t.Fatalf("ParseFlags failed: %v", err)
	}
	if _, err := requestFromFlags(cmd, "gs://bucket/clip.mp4", utils.DefaultConfig()); err == nil {
		t.Error("Expected an error for -n 0")
	}
}

func TestPrintRun(t *testing.T) {
	run := utils.Run{
		ID:       "run-1",
		VideoURI: "gs://bucket/clip.mp4",
		Results: []utils.Result{{
			Number: 1,
			Process: utils.Process{
				Issue:   "Printer offline",
				Actions: []utils.Step{{Speaker: "Agent", ActionSummary: "Restart spooler", TimeStamp: "2024-05-01T10:00:00-0400"}},
			},
			Feedback: utils.ProcessFeedback{Support: true, Rating: 4, Recommendations: "Name the service"},
		}},
		BestIndex: 1,
	}

	var text bytes.Buffer
	if err := printRun(&text, run, false); err != nil {
		t.Fatalf("printRun failed: %v", err)
	}
	for _, want := range []string{"Playbook 1: Printer offline (rating 4/5", "Agent: Restart spooler", "Suggested best playbook: 1"} {
		if !strings.Contains(text.String(), want) {
			t.Errorf("Output missing %q:\n%s", want, text.String())
		}
	}

	var out bytes.Buffer
	if err := printRun(&out, run, true); err != nil {
		t.Fatalf("printRun failed: %v", err)
	}
	var decoded utils.Run
	if err := json.Unmarshal(out.Bytes(), &decoded); err != nil {
		t.Fatalf("Output is not JSON: %v", err)
	}
	if decoded.ID != "run-1" || len(decoded.Results) != 1 {
		t.Errorf("Unexpected decoded run: %+v", decoded)
	}
}

func TestHistoryFromXML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.xml")
	run := utils.NewRun(utils.Request{VideoURI: "gs://bucket/clip.mp4"}, []utils.Result{
		{Number: 1, Process: utils.Process{Issue: "Printer offline"}, Feedback: utils.ProcessFeedback{Rating: 2}},
		{Number: 2, Process: utils.Process{Issue: "Printer offline"}, Feedback: utils.ProcessFeedback{Support: true, Rating: 4}},
	})
	if err := utils.WriteXMLFile(path, run); err != nil {
		t.Fatalf("WriteXMLFile failed: %v", err)
	}

	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"history", "--from-xml", path})
	if err := root.Execute(); err != nil {
		t.Fatalf("history failed: %v", err)
	}
	for _, want := range []string{"Run " + run.ID + ": 2 playbooks for gs://bucket/clip.mp4", "Suggested best playbook: 2"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("Output missing %q:\n%s", want, out.String())
		}
	}

	root = newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"history", "--from-xml", path, run.ID})
	if err := root.Execute(); err == nil {
		t.Error("Expected an error when combining --from-xml with a run id")
	}
}
