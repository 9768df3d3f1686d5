package adapters

import "testing"

func TestSaramaPartitionConsumer_PauseResumeWithoutSession(t *testing.T) {
	consumer := NewSaramaPartitionConsumer()

	if err := consumer.Pause("orders_v1", 3); err != nil {
		t.Errorf("Pause() error = %v, want nil when no session is attached", err)
	}
	if err := consumer.Resume("orders_v1", 3); err != nil {
		t.Errorf("Resume() error = %v, want nil when no session is attached", err)
	}
}

func TestValidateBootstrapServers(t *testing.T) {
	tests := []struct {
		name    string
		servers []string
		wantErr bool
	}{
		{
			name:    "single server",
			servers: []string{"localhost:9092"},
			wantErr: false,
		},
		{
			name:    "multiple servers",
			servers: []string{"broker-1:9092", "broker-2:9092"},
			wantErr: false,
		},
		{
			name:    "empty list",
			servers: nil,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateBootstrapServers(tt.servers)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateBootstrapServers() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
