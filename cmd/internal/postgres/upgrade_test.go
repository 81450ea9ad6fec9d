package postgres

import (
	"testing"
)

func TestCluster_extractVersion(t *testing.T) {

	tests := []struct {
		name          string
		commandOutput string
		want          uint64
		wantErr       bool
	}{
		{
			name:          "postgres alpine",
			commandOutput: "PostgreSQL 12.16",
			want:          12,
			wantErr:       false,
		},
		{
			name:          "postgres debian",
			commandOutput: "PostgreSQL 12.22 (Debian 12.22-1.pgdg120+1)",
			want:          12,
			wantErr:       false,
		},
		{
			name:          "postgres 9 with minor",
			commandOutput: "PostgreSQL 9.6.24",
			want:          9,
			wantErr:       false,
		},
		{
			name:          "no postgres output",
			commandOutput: "command not found",
			want:          0,
			wantErr:       true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Cluster{}
			got, err := c.extractVersion(tt.commandOutput)
			if (err != nil) != tt.wantErr {
				t.Errorf("Cluster.extractVersion() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if got != tt.want {
				t.Errorf("Cluster.extractVersion() = %v, want %v", got, tt.want)
			}
		})
	}
}
